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

package bll

import (
	"fmt"
	"testing"
	"time"

	"github.com/JuulLabs-OSS/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"mynewt.apache.org/blemgr/bmxact/bledefs"
)

func TestUuid16Conversion(t *testing.T) {
	bllUuid := BllUuidFromUuid(bledefs.NewBleUuid16(0x1234))
	assert.Equal(t, ble.UUID{0x34, 0x12}, bllUuid)

	uuid, err := UuidFromBllUuid(bllUuid)
	require.NoError(t, err)
	assert.Equal(t, bledefs.NewBleUuid16(0x1234), uuid)
}

func TestUuid128Conversion(t *testing.T) {
	uuid, err := bledefs.ParseUuid("8d53dc1d-1db7-4cd3-868b-8a527460aa84")
	require.NoError(t, err)

	bllUuid := BllUuidFromUuid(uuid)
	require.Len(t, bllUuid, 16)

	// The native stack stores UUIDs least significant byte first.
	assert.Equal(t, byte(0x84), bllUuid[0])
	assert.Equal(t, byte(0x8d), bllUuid[15])

	back, err := UuidFromBllUuid(bllUuid)
	require.NoError(t, err)
	assert.Equal(t, 0, bledefs.CompareUuids(uuid, back))
}

func TestUuidInvalid(t *testing.T) {
	_, err := UuidFromBllUuid(ble.UUID{1, 2, 3})
	assert.Error(t, err)
}

func TestAdvStartOutcome(t *testing.T) {
	settle := 20 * time.Millisecond

	// Still advertising after the settle window.
	report, err := advStartOutcome(make(chan error), settle)
	assert.True(t, report)
	assert.NoError(t, err)

	errCh := make(chan error, 1)
	errCh <- fmt.Errorf("no adapter")
	report, err = advStartOutcome(errCh, settle)
	assert.True(t, report)
	assert.EqualError(t, err, "failed to start advertising: no adapter")

	// Returning early without an error is still a failed start.
	errCh <- nil
	report, err = advStartOutcome(errCh, settle)
	assert.True(t, report)
	assert.EqualError(t, err, "advertising stopped")

	errCh <- context.Canceled
	report, _ = advStartOutcome(errCh, settle)
	assert.False(t, report)
}
