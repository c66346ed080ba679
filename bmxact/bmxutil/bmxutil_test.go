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

package bmxutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"mynewt.apache.org/blemgr/bmxact/bledefs"
)

func TestBcasterLatestWins(t *testing.T) {
	var b Bcaster

	ch := b.Listen()
	b.Send(1)
	b.Send(2)

	assert.Equal(t, 2, <-ch)

	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value: %v", v)
	default:
	}
}

func TestBcasterUnlisten(t *testing.T) {
	var b Bcaster

	ch1 := b.Listen()
	ch2 := b.Listen()
	assert.Equal(t, 2, b.NumListeners())

	assert.True(t, b.Unlisten(ch1))
	assert.False(t, b.Unlisten(ch1))

	_, ok := <-ch1
	assert.False(t, ok)

	b.Send("x")
	assert.Equal(t, "x", <-ch2)
}

func TestBcasterSendAndClear(t *testing.T) {
	var b Bcaster

	ch := b.Listen()
	b.SendAndClear("done")

	assert.Equal(t, "done", <-ch)
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.NumListeners())
}

func TestErrorTypes(t *testing.T) {
	err := NewRadioUnavailableError(bledefs.BLE_POWER_STATE_POWERED_OFF)
	assert.True(t, IsRadioUnavailable(err))
	assert.Equal(t, "Bluetooth not available: powered_off", err.Error())

	assert.True(t, IsUnknownPeer(NewUnknownPeerError("aa")))
	assert.True(t, IsXport(FmtXportError("hci%d down", 0)))
	assert.False(t, IsXport(nil))
	assert.True(t, IsAlready(NewAlreadyError("already")))
	assert.False(t, IsAlready(fmt.Errorf("other")))
}
