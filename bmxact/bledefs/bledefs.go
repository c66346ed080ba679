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

package bledefs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Identifiers of the single service published by the demo peripheral.
const DemoSvcUuid = 0x1234
const DemoChrUuid = 0xabcd
const DemoLocalName = "MyPeripheral"

// Label shown for peers that do not advertise a name.
const PlaceholderName = "Device"

// Identifies a remote peer.  The value is assigned by the radio stack (a
// MAC address on Linux, a UUID on macOS) and is opaque to this package.
type BlePeerId string

func (id BlePeerId) String() string {
	return string(id)
}

type BlePowerState int

const (
	BLE_POWER_STATE_UNKNOWN BlePowerState = iota
	BLE_POWER_STATE_RESETTING
	BLE_POWER_STATE_UNSUPPORTED
	BLE_POWER_STATE_UNAUTHORIZED
	BLE_POWER_STATE_POWERED_OFF
	BLE_POWER_STATE_POWERED_ON
)

var BlePowerStateStringMap = map[BlePowerState]string{
	BLE_POWER_STATE_UNKNOWN:      "unknown",
	BLE_POWER_STATE_RESETTING:    "resetting",
	BLE_POWER_STATE_UNSUPPORTED:  "unsupported",
	BLE_POWER_STATE_UNAUTHORIZED: "unauthorized",
	BLE_POWER_STATE_POWERED_OFF:  "powered_off",
	BLE_POWER_STATE_POWERED_ON:   "powered_on",
}

func BlePowerStateToString(state BlePowerState) string {
	s := BlePowerStateStringMap[state]
	if s == "" {
		return "???"
	}

	return s
}

func BlePowerStateFromString(s string) (BlePowerState, error) {
	for state, name := range BlePowerStateStringMap {
		if s == name {
			return state, nil
		}
	}

	return BlePowerState(0), fmt.Errorf("Invalid BlePowerState string: %s", s)
}

func (s BlePowerState) String() string {
	return BlePowerStateToString(s)
}

func (s BlePowerState) MarshalJSON() ([]byte, error) {
	return json.Marshal(BlePowerStateToString(s))
}

func (s *BlePowerState) UnmarshalJSON(data []byte) error {
	var err error

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	*s, err = BlePowerStateFromString(str)
	return err
}

// Used by YAML fixtures.
func (s *BlePowerState) UnmarshalText(text []byte) error {
	var err error
	*s, err = BlePowerStateFromString(string(text))
	return err
}

type BleUuid16 uint16

func (bu16 BleUuid16) String() string {
	return fmt.Sprintf("0x%04x", uint16(bu16))
}

func ParseUuid16(s string) (BleUuid16, error) {
	val, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return BleUuid16(0), fmt.Errorf("Invalid UUID: %s", s)
	}

	return BleUuid16(val), nil
}

type BleUuid128 [16]byte

func (bu128 BleUuid128) String() string {
	var buf bytes.Buffer
	buf.Grow(len(bu128)*2 + 4)

	for i, b := range bu128 {
		switch i {
		case 4, 6, 8, 10:
			buf.WriteString("-")
		}

		fmt.Fprintf(&buf, "%02x", b)
	}

	return buf.String()
}

func ParseUuid128(s string) (BleUuid128, error) {
	var bu128 BleUuid128

	if len(s) != 36 {
		return bu128, fmt.Errorf("Invalid UUID: %s", s)
	}

	boff := 0
	for i := 0; i < 36; {
		switch i {
		case 8, 13, 18, 23:
			if s[i] != '-' {
				return bu128, fmt.Errorf("Invalid UUID: %s", s)
			}
			i++

		default:
			u64, err := strconv.ParseUint(s[i:i+2], 16, 8)
			if err != nil {
				return bu128, fmt.Errorf("Invalid UUID: %s", s)
			}
			bu128[boff] = byte(u64)
			i += 2
			boff++
		}
	}

	return bu128, nil
}

type BleUuid struct {
	// Set to 0 if the 128-bit UUID should be used.
	U16 BleUuid16

	// Ignored if U16 is nonzero.
	U128 BleUuid128
}

func NewBleUuid16(u16 uint16) BleUuid {
	return BleUuid{U16: BleUuid16(u16)}
}

func (bu BleUuid) String() string {
	if bu.U16 != 0 {
		return bu.U16.String()
	} else {
		return bu.U128.String()
	}
}

// Accepts "0x1234", "1234" (hex, as printed by most BLE tools), or the
// canonical 36-character 128-bit form.
func ParseUuid(uuidStr string) (BleUuid, error) {
	bu := BleUuid{}
	var err error

	s := strings.TrimSpace(uuidStr)
	if len(s) == 4 && !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}

	bu.U16, err = ParseUuid16(s)
	if err == nil {
		return bu, nil
	}

	bu.U128, err = ParseUuid128(strings.ToLower(s))
	if err == nil {
		return bu, nil
	}

	return bu, fmt.Errorf("Invalid UUID: %s", uuidStr)
}

func (bu BleUuid) MarshalJSON() ([]byte, error) {
	return json.Marshal(bu.String())
}

func (bu *BleUuid) UnmarshalJSON(data []byte) error {
	var err error

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*bu, err = ParseUuid(s)
		return err
	}

	// Not a string; maybe it's a raw 16-bit number.
	if err = json.Unmarshal(data, &bu.U16); err != nil {
		return err
	}

	return nil
}

func (bu *BleUuid) UnmarshalText(text []byte) error {
	var err error
	*bu, err = ParseUuid(string(text))
	return err
}

func CompareUuids(a BleUuid, b BleUuid) int {
	if a.U16 != 0 || b.U16 != 0 {
		return int(a.U16) - int(b.U16)
	} else {
		return bytes.Compare(a.U128[:], b.U128[:])
	}
}

type BleSvcType int

const (
	BLE_SVC_TYPE_PRIMARY BleSvcType = iota
	BLE_SVC_TYPE_SECONDARY
)

var BleSvcTypeStringMap = map[BleSvcType]string{
	BLE_SVC_TYPE_PRIMARY:   "primary",
	BLE_SVC_TYPE_SECONDARY: "secondary",
}

func BleSvcTypeToString(svcType BleSvcType) string {
	s := BleSvcTypeStringMap[svcType]
	if s == "" {
		return "???"
	}

	return s
}

type BleChrFlags int

const (
	BLE_GATT_F_BROADCAST    BleChrFlags = 0x0001
	BLE_GATT_F_READ                     = 0x0002
	BLE_GATT_F_WRITE_NO_RSP             = 0x0004
	BLE_GATT_F_WRITE                    = 0x0008
	BLE_GATT_F_NOTIFY                   = 0x0010
	BLE_GATT_F_INDICATE                 = 0x0020
)

var bleChrFlagNames = []struct {
	flag BleChrFlags
	name string
}{
	{BLE_GATT_F_BROADCAST, "broadcast"},
	{BLE_GATT_F_READ, "read"},
	{BLE_GATT_F_WRITE_NO_RSP, "write_no_rsp"},
	{BLE_GATT_F_WRITE, "write"},
	{BLE_GATT_F_NOTIFY, "notify"},
	{BLE_GATT_F_INDICATE, "indicate"},
}

func (f BleChrFlags) String() string {
	var names []string
	for _, fn := range bleChrFlagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}

	return strings.Join(names, "|")
}

type BleAttFlags int

const (
	BLE_ATT_F_READ         BleAttFlags = 0x01
	BLE_ATT_F_WRITE                    = 0x02
	BLE_ATT_F_READ_ENC                 = 0x04
	BLE_ATT_F_WRITE_ENC                = 0x20
)

type BleChr struct {
	Uuid     BleUuid
	Flags    BleChrFlags
	AttFlags BleAttFlags

	// Fixed value served for reads; nil means the value is supplied
	// dynamically (or not at all).
	Value []byte
}

type BleSvc struct {
	Uuid    BleUuid
	SvcType BleSvcType
	Chrs    []BleChr
}

func (s *BleSvc) String() string {
	return fmt.Sprintf("uuid=%s type=%s chrs=%d",
		s.Uuid.String(), BleSvcTypeToString(s.SvcType), len(s.Chrs))
}

type BleSvcData struct {
	Uuid BleUuid
	Data []byte
}

type BleAdvFields struct {
	// Raw payload, if the radio stack exposes it.
	Data []byte

	// Each field is only present if the sender included it in its
	// advertisement.
	Name        *string
	Uuids16     []BleUuid16
	Uuids128    []BleUuid128
	TxPwrLvl    *int8
	MfgData     []byte
	SvcData     []BleSvcData
	Connectable bool
}

// Collects all advertised service UUIDs regardless of width.
func (f *BleAdvFields) Uuids() []BleUuid {
	uuids := make([]BleUuid, 0, len(f.Uuids16)+len(f.Uuids128))
	for _, u := range f.Uuids16 {
		uuids = append(uuids, BleUuid{U16: u})
	}
	for _, u := range f.Uuids128 {
		uuids = append(uuids, BleUuid{U128: u})
	}

	return uuids
}

type BleAdvReport struct {
	Sender BlePeerId
	Rssi   int

	Fields BleAdvFields
}

type BleAdvRptFn func(r BleAdvReport)
type BleAdvPredicate func(adv BleAdvReport) bool

// Returns the advertised name or the placeholder label.
func DisplayName(name *string) string {
	if name == nil || *name == "" {
		return PlaceholderName
	}

	return *name
}
