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
	"sync"
)

// Fans values out to any number of listeners.  Unlike a one-shot broadcast,
// listeners stay registered until removed.  Each listener channel holds a
// single value; if a listener falls behind, the stale value is replaced so
// the listener always sees the most recent one.
type Bcaster struct {
	chs []chan interface{}
	mtx sync.Mutex
}

func (b *Bcaster) Listen() chan interface{} {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	ch := make(chan interface{}, 1)
	b.chs = append(b.chs, ch)

	return ch
}

// Removes and closes the specified listener.  Returns false if the channel
// was not registered.
func (b *Bcaster) Unlisten(ch chan interface{}) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	for i, c := range b.chs {
		if c == ch {
			b.chs = append(b.chs[:i], b.chs[i+1:]...)
			close(c)
			return true
		}
	}

	return false
}

func (b *Bcaster) Send(val interface{}) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	for _, ch := range b.chs {
		// Drop the unread value, if any.
		select {
		case <-ch:
		default:
		}

		ch <- val
	}
}

func (b *Bcaster) Clear() {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	for _, ch := range b.chs {
		close(ch)
	}
	b.chs = nil
}

func (b *Bcaster) SendAndClear(val interface{}) {
	b.Send(val)
	b.Clear()
}

func (b *Bcaster) NumListeners() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	return len(b.chs)
}
