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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBllConnString(t *testing.T) {
	bc, err := ParseBllConnString("")
	require.NoError(t, err)
	assert.Equal(t, "", bc.CtlrName)
	assert.Equal(t, POWER_SOURCE_NONE, bc.Power)

	bc, err = ParseBllConnString(
		"ctlr_name=hci1,hci=1,conn_timeout=2.5,power=bluez")
	require.NoError(t, err)
	assert.Equal(t, "hci1", bc.CtlrName)
	assert.Equal(t, 1, bc.HciIdx)
	assert.Equal(t, 2500*time.Millisecond, bc.ConnTimeoutDuration())
	assert.Equal(t, POWER_SOURCE_BLUEZ, bc.Power)
	assert.Equal(t, "bluez", PowerSourceToString(bc.Power))
}

func TestParseBllConnStringErrors(t *testing.T) {
	bad := []string{
		"ctlr_name",
		"hci=abc",
		"hci=-1",
		"conn_timeout=soon",
		"conn_timeout=0",
		"power=battery",
		"peer_name=x",
	}

	for _, cs := range bad {
		_, err := ParseBllConnString(cs)
		assert.Error(t, err, "connstring %q", cs)
	}
}

func TestParseSimConnString(t *testing.T) {
	sc, err := ParseSimConnString("fixture=/tmp/radio.yml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/radio.yml", sc.Fixture)

	_, err = ParseSimConnString("speed=fast")
	assert.Error(t, err)
}

func TestBuildSimRadio(t *testing.T) {
	r, err := BuildSimRadio(&SimConfig{})
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = BuildSimRadio(&SimConfig{Fixture: "/nonexistent/radio.yml"})
	assert.Error(t, err)
}

func tempMgr(t *testing.T) (*ConnProfileMgr, string) {
	dir, err := ioutil.TempDir("", "blemgr")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "cp.json")
	cpm, err := NewConnProfileMgrFile(path)
	require.NoError(t, err)

	return cpm, path
}

func TestConnProfilePersist(t *testing.T) {
	cpm, path := tempMgr(t)

	require.NoError(t, cpm.AddConnProfile(&ConnProfile{
		Name:       "watch",
		Type:       CONN_TYPE_BLE,
		ConnString: "hci=1",
	}))
	require.NoError(t, cpm.AddConnProfile(&ConnProfile{
		Name: "demo",
		Type: CONN_TYPE_SIM,
	}))

	reloaded, err := NewConnProfileMgrFile(path)
	require.NoError(t, err)

	list, err := reloaded.GetConnProfileList()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "demo", list[0].Name)
	assert.Equal(t, CONN_TYPE_SIM, list[0].Type)
	assert.Equal(t, "watch", list[1].Name)
	assert.Equal(t, "hci=1", list[1].ConnString)

	require.NoError(t, reloaded.DeleteConnProfile("demo"))
	assert.Error(t, reloaded.DeleteConnProfile("demo"))

	_, err = reloaded.GetConnProfile("demo")
	assert.Error(t, err)
}

func TestConnProfileBadFile(t *testing.T) {
	_, path := tempMgr(t)
	require.NoError(t, ioutil.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewConnProfileMgrFile(path)
	assert.Error(t, err)
}

func TestResolveConnProfile(t *testing.T) {
	cpm, _ := tempMgr(t)
	require.NoError(t, cpm.AddConnProfile(&ConnProfile{
		Name:       "watch",
		Type:       CONN_TYPE_BLE,
		ConnString: "hci=1",
	}))

	cp, err := cpm.ResolveConnProfile("", "", "")
	require.NoError(t, err)
	assert.Equal(t, CONN_TYPE_BLE, cp.Type)

	cp, err = cpm.ResolveConnProfile("watch", "", "")
	require.NoError(t, err)
	assert.Equal(t, "hci=1", cp.ConnString)

	cp, err = cpm.ResolveConnProfile("watch", "sim", "")
	require.NoError(t, err)
	assert.Equal(t, CONN_TYPE_SIM, cp.Type)
	assert.Equal(t, "", cp.ConnString)

	cp, err = cpm.ResolveConnProfile("watch", "", "hci=2")
	require.NoError(t, err)
	assert.Equal(t, "hci=2", cp.ConnString)

	// The stored profile is not modified by overrides.
	p, _ := cpm.GetConnProfile("watch")
	assert.Equal(t, "hci=1", p.ConnString)

	_, err = cpm.ResolveConnProfile("missing", "", "")
	assert.Error(t, err)

	_, err = cpm.ResolveConnProfile("", "serial", "")
	assert.Error(t, err)
}
