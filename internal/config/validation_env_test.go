package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateExecutionEnvironment_SourceDateEpoch(t *testing.T) {
	t.Setenv(EnvSourceDateEpoch, "1700000000")
	assert.True(t, ValidateExecutionEnvironment(nil).IsValid())

	t.Setenv(EnvSourceDateEpoch, "last tuesday")
	result := ValidateExecutionEnvironment(nil)
	assert.False(t, result.IsValid())
	assert.Contains(t, result.Error(), "SOURCE_DATE_EPOCH")
}

func TestValidateExecutionEnvironment_UsernameWithoutPassword(t *testing.T) {
	t.Setenv(EnvSourceDateEpoch, "")
	t.Setenv(EnvRegistryPassword, "")
	cfg := &Config{Registry: RegistryConfig{Repository: "ghcr.io/acme/policies", Username: "alice"}}

	result := ValidateExecutionEnvironment(cfg)

	assert.True(t, result.IsValid())
	assert.Empty(t, result.Error())
	assert.Contains(t, result.ValidationWarnings[len(result.ValidationWarnings)-1], EnvRegistryPassword)
}

func TestValidateExecutionEnvironment_LoopbackInContainer(t *testing.T) {
	t.Setenv(EnvSourceDateEpoch, "")
	t.Setenv("RUNNING_IN_CONTAINER", "true")
	cfg := &Config{Registry: RegistryConfig{Repository: "localhost:5000/acme/policies"}}

	result := ValidateExecutionEnvironment(cfg)

	assert.True(t, result.IsContainerized)
	assert.NotEmpty(t, result.ValidationWarnings)
	assert.Contains(t, result.ValidationWarnings[0], "host.docker.internal")
}

func TestRegistryCredentials(t *testing.T) {
	t.Setenv(EnvRegistryUsername, "env-user")
	t.Setenv(EnvRegistryPassword, "env-pass")

	user, pass := RegistryCredentials(nil)
	assert.Equal(t, "env-user", user)
	assert.Equal(t, "env-pass", pass)

	user, pass = RegistryCredentials(&Config{Registry: RegistryConfig{Username: "file-user", Password: "file-pass"}})
	assert.Equal(t, "file-user", user)
	assert.Equal(t, "file-pass", pass)
}

func TestIsLoopbackRegistry(t *testing.T) {
	assert.True(t, isLoopbackRegistry("localhost:5000/acme/policies"))
	assert.True(t, isLoopbackRegistry("127.0.0.1:5000/acme/policies"))
	assert.False(t, isLoopbackRegistry("ghcr.io/acme/policies"))
	assert.False(t, isLoopbackRegistry("::not a ref::"))
}
