package v10nflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		cfg   Config
		valid bool
	}{
		{ConfigSkeleton(), true},
		{Config{ResendInterval: 1, CodeLength: 4}, true},
		{Config{ResendInterval: 3600, CodeLength: 8}, true},
		{Config{ResendInterval: 0, CodeLength: 6}, false},
		{Config{ResendInterval: 3601, CodeLength: 6}, false},
		{Config{ResendInterval: 60, CodeLength: 3}, false},
		{Config{ResendInterval: 60, CodeLength: 9}, false},
	}

	for _, testCase := range testCases {
		err := testCase.cfg.Validate()
		assert.Equal(t, testCase.valid, err == nil, "%+v", testCase.cfg)
	}
}

func TestConfigFromEnvSeed(t *testing.T) {
	cfg, err := ConfigFromEnv("V10NFLOW_TEST_UNSET_", nil)
	require.Nil(t, err)
	assert.Equal(t, ConfigSkeleton(), *cfg)

	_, err = ConfigFromEnv("V10NFLOW_TEST_UNSET_", &Config{ResendInterval: 0, CodeLength: 6})
	assert.NotNil(t, err, "seed is validated")
}
