// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnString(t *testing.T) {
	testDefs := []struct {
		name     string
		opts     []PostgresOptionFunc
		expected string
	}{
		{
			name:     "defaults",
			expected: "host=localhost user=postgres password= dbname=postgres port=5432 sslmode=disable TimeZone=UTC",
		},
		{
			name: "discrete options",
			opts: []PostgresOptionFunc{
				WithHost("db.internal"),
				WithPort(6543),
				WithUser("tally"),
				WithPassword("secret"),
				WithDatabase("governance"),
				WithSSLMode("require"),
				WithTimeZone("Europe/Berlin"),
			},
			expected: "host=db.internal user=tally password=secret dbname=governance port=6543 sslmode=require TimeZone=Europe/Berlin",
		},
		{
			name: "dsn overrides",
			opts: []PostgresOptionFunc{
				WithHost("ignored"),
				WithDsn("  postgres://tally@db/governance  "),
			},
			expected: "postgres://tally@db/governance",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			db, err := NewWithOptions(testDef.opts...)
			require.NoError(t, err)
			assert.Equal(t, testDef.expected, db.connString())
		})
	}
}

func TestNotStarted(t *testing.T) {
	db, err := NewWithOptions()
	require.NoError(t, err)
	require.NoError(t, db.Close())
	txn := db.Transaction()
	require.ErrorIs(t, txn.Commit(), errNotStarted)
	require.ErrorIs(t, txn.Rollback(), errNotStarted)
}
