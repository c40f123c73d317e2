package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("STORYSPARK_TEST_HOST", "milvus.internal")

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "host: ${STORYSPARK_TEST_HOST}", "host: milvus.internal"},
		{"set variable ignores default", "host: ${STORYSPARK_TEST_HOST:fallback}", "host: milvus.internal"},
		{"unset with default", "port: ${STORYSPARK_TEST_PORT:19530}", "port: 19530"},
		{"unset without default kept verbatim", "key: ${STORYSPARK_TEST_KEY}", "key: ${STORYSPARK_TEST_KEY}"},
		{"empty default", "key: ${STORYSPARK_TEST_KEY:}", "key: "},
		{"plain text untouched", "name: storyspark", "name: storyspark"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, expandEnv(tc.in))
		})
	}
}
