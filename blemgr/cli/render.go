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

package cli

import (
	"fmt"
	"io"

	"github.com/fatih/structs"
	"github.com/ugorji/go/codec"

	"mynewt.apache.org/blemgr/bmxact/central"
)

func renderDevicesText(w io.Writer, s central.Snapshot) {
	if len(s.Devices) == 0 {
		fmt.Fprintf(w, "No devices found\n")
		return
	}

	fmt.Fprintf(w, "%3s %-24s %-40s %5s\n", "#", "NAME", "ID", "RSSI")
	for i, d := range s.Devices {
		fmt.Fprintf(w, "%3d %-24s %-40s %5d\n",
			i, d.DisplayName(), d.Id, d.Rssi)
	}
}

func structMap(v interface{}) map[string]interface{} {
	// Use the "codec" tag, which is also understood by the encoder.
	s := structs.New(v)
	s.TagName = "codec"
	return s.Map()
}

// Converts a snapshot to a generic map suitable for encoding.  Enumerations
// are rendered by name.
func snapshotMap(s central.Snapshot) map[string]interface{} {
	devs := make([]interface{}, len(s.Devices))
	for i, d := range s.Devices {
		m := structMap(d)
		m["id"] = string(d.Id)
		m["name"] = d.DisplayName()
		devs[i] = m
	}

	var conn interface{}
	if s.Conn != nil {
		m := structMap(*s.Conn)
		m["peer"] = string(s.Conn.Peer)
		m["status"] = s.Conn.Status.String()
		conn = m
	}

	return map[string]interface{}{
		"state":   s.State.String(),
		"power":   s.Power.String(),
		"status":  s.Status,
		"devices": devs,
		"conn":    conn,
	}
}

func renderSnapshotJson(s central.Snapshot) ([]byte, error) {
	h := new(codec.JsonHandle)
	h.Indent = 4
	h.Canonical = true

	buf := []byte{}
	enc := codec.NewEncoderBytes(&buf, h)
	if err := enc.Encode(snapshotMap(s)); err != nil {
		return nil, err
	}

	return buf, nil
}
