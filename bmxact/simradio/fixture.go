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

package simradio

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	. "mynewt.apache.org/blemgr/bmxact/bledefs"
)

type FixturePeer struct {
	Id   string  `yaml:"id"`
	Name *string `yaml:"name"`
	Rssi int     `yaml:"rssi"`

	// Number of advertisements emitted per scan; 0 means 1.
	AdvCount int `yaml:"adv_count"`

	// Nil means connectable.
	Connectable *bool `yaml:"connectable"`

	// If set, connection attempts fail with this reason.
	FailReason string `yaml:"fail_reason"`

	SvcUuids []BleUuid `yaml:"svc_uuids"`
	MfgData  []byte    `yaml:"mfg_data"`
}

type Fixture struct {
	Power     BlePowerState `yaml:"power"`
	AdvItvl   time.Duration `yaml:"adv_itvl"`
	ConnDelay time.Duration `yaml:"conn_delay"`
	Peers     []FixturePeer `yaml:"peers"`

	// Errors reported for service registration and advertising; empty
	// means success.
	SvcAddErr string `yaml:"svc_add_err"`
	AdvErr    string `yaml:"adv_err"`
}

const defaultFixture = `
power: powered_on
adv_itvl: 100ms
conn_delay: 200ms
peers:
  - name: Watch
    rssi: -48
    adv_count: 3
  - name: Thermometer
    rssi: -71
    svc_uuids: ["0x1809"]
  - rssi: -90
  - name: Beacon
    rssi: -65
    connectable: false
  - name: Headset
    rssi: -58
    fail_reason: Peer removed pairing information
`

func (p *FixturePeer) advCount() int {
	if p.AdvCount <= 0 {
		return 1
	}
	return p.AdvCount
}

func (p *FixturePeer) connectable() bool {
	return p.Connectable == nil || *p.Connectable
}

func (p *FixturePeer) report() BleAdvReport {
	fields := BleAdvFields{
		Name:        p.Name,
		MfgData:     p.MfgData,
		Connectable: p.connectable(),
	}

	for _, u := range p.SvcUuids {
		if u.U16 != 0 {
			fields.Uuids16 = append(fields.Uuids16, u.U16)
		} else {
			fields.Uuids128 = append(fields.Uuids128, u.U128)
		}
	}

	return BleAdvReport{
		Sender: BlePeerId(p.Id),
		Rssi:   p.Rssi,
		Fields: fields,
	}
}

func ParseFixture(data []byte) (Fixture, error) {
	fx := Fixture{
		Power: BLE_POWER_STATE_POWERED_ON,
	}

	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fx, fmt.Errorf("invalid radio fixture: %s", err.Error())
	}

	seen := map[string]struct{}{}
	for i := range fx.Peers {
		p := &fx.Peers[i]
		if p.Id == "" {
			p.Id = uuid.New().String()
		}

		if _, ok := seen[p.Id]; ok {
			return fx, fmt.Errorf("invalid radio fixture: duplicate peer id %s",
				p.Id)
		}
		seen[p.Id] = struct{}{}
	}

	return fx, nil
}

func LoadFixture(path string) (Fixture, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("error reading radio fixture: %s",
			err.Error())
	}

	return ParseFixture(data)
}

// A handful of peers covering the interesting connection outcomes.
func DefaultFixture() Fixture {
	fx, err := ParseFixture([]byte(defaultFixture))
	if err != nil {
		panic(err.Error())
	}

	return fx
}
