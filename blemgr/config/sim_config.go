/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package config

import (
	"mynewt.apache.org/blemgr/bmxact/simradio"
	"mynewt.apache.org/newt/util"
)

type SimConfig struct {
	// Path of a YAML radio fixture; empty selects the built-in one.
	Fixture string
}

func ParseSimConnString(cs string) (*SimConfig, error) {
	sc := &SimConfig{}

	kvs, err := splitConnString("sim", cs)
	if err != nil {
		return nil, err
	}

	for _, kv := range kvs {
		switch kv[0] {
		case "fixture":
			sc.Fixture = kv[1]

		default:
			return nil, einvalConnString("sim", "Unrecognized key: %s", kv[0])
		}
	}

	return sc, nil
}

func BuildSimRadio(sc *SimConfig) (*simradio.SimRadio, error) {
	fx := simradio.DefaultFixture()

	if sc.Fixture != "" {
		var err error
		fx, err = simradio.LoadFixture(sc.Fixture)
		if err != nil {
			return nil, util.ChildNewtError(err)
		}
	}

	return simradio.NewSimRadio(fx), nil
}
