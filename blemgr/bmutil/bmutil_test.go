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

package bmutil

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorCausedBy(t *testing.T) {
	root := fmt.Errorf("adapter gone")
	wrapped := errors.Wrap(errors.Wrap(root, "dial"), "connect")

	assert.True(t, ErrorCausedBy(wrapped, root))
	assert.True(t, ErrorCausedBy(root, root))
	assert.False(t, ErrorCausedBy(wrapped, fmt.Errorf("adapter gone")))
}

func TestTimeoutDuration(t *testing.T) {
	Timeout = 1.5
	defer func() { Timeout = 0 }()

	assert.Equal(t, "1.5s", TimeoutDuration().String())
}
