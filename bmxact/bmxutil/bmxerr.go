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

	"mynewt.apache.org/blemgr/bmxact/bledefs"
)

// Indicates that a request was issued while the radio was not powered on.
type RadioUnavailableError struct {
	Text  string
	State bledefs.BlePowerState
}

func NewRadioUnavailableError(state bledefs.BlePowerState) *RadioUnavailableError {
	return &RadioUnavailableError{
		Text:  "Bluetooth not available: " + state.String(),
		State: state,
	}
}

func (e *RadioUnavailableError) Error() string {
	return e.Text
}

func IsRadioUnavailable(err error) bool {
	_, ok := err.(*RadioUnavailableError)
	return ok
}

// Indicates a reference to a peer that was not discovered in the current
// scan session.
type UnknownPeerError struct {
	Text string
	Peer bledefs.BlePeerId
}

func NewUnknownPeerError(peer bledefs.BlePeerId) *UnknownPeerError {
	return &UnknownPeerError{
		Text: fmt.Sprintf("unknown peer: %s", peer),
		Peer: peer,
	}
}

func (e *UnknownPeerError) Error() string {
	return e.Text
}

func IsUnknownPeer(err error) bool {
	_, ok := err.(*UnknownPeerError)
	return ok
}

// Represents a low-level radio stack error.
type XportError struct {
	Text string
}

func NewXportError(text string) *XportError {
	return &XportError{text}
}

func FmtXportError(format string, args ...interface{}) *XportError {
	return NewXportError(fmt.Sprintf(format, args...))
}

func (e *XportError) Error() string {
	return e.Text
}

func IsXport(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*XportError)
	return ok
}

// Indicates an attempt to transition to the already-current state.
type AlreadyError struct {
	Text string
}

func NewAlreadyError(text string) *AlreadyError {
	return &AlreadyError{text}
}

func (err *AlreadyError) Error() string {
	return err.Text
}

func IsAlready(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*AlreadyError)
	return ok
}
