package handlers

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/config/wizard"
)

func wizardResult() *wizard.Result {
	return &wizard.Result{
		Project:     "search",
		Stack:       "prod",
		Region:      "eu-west-1",
		Domain:      "example.com",
		Subdomain:   "search",
		ZoneID:      "Z1",
		Image:       "typesense/typesense:27.1",
		Size:        "small",
		TaskRoleArn: "arn:aws:iam::123456789012:role/task",
	}
}

func TestInit_WritesConfig(t *testing.T) {
	saveAndRestoreFactories(t)
	out := &bytes.Buffer{}
	stdout = out

	fileExists = func(string) bool { return false }
	runWizard = func(context.Context) (*wizard.Result, error) { return wizardResult(), nil }
	var written *config.Config
	var writtenPath string
	writeConfig = func(cfg *config.Config, path string) error {
		written, writtenPath = cfg, path
		return nil
	}

	require.NoError(t, Init(context.Background(), ""))

	assert.Equal(t, config.DefaultFile, writtenPath)
	require.NotNil(t, written)
	assert.Equal(t, "prod", written.Stack)
	assert.Equal(t, "eu-west-1", written.Region)
	assert.Contains(t, out.String(), "Configuration saved!")
	assert.Contains(t, out.String(), "search.example.com")
	assert.Contains(t, out.String(), config.EnvAdminAPIKey)
}

func TestInit_KeepsExistingFileWhenDeclined(t *testing.T) {
	saveAndRestoreFactories(t)
	stdout = &bytes.Buffer{}

	fileExists = func(string) bool { return true }
	confirmOverwrite = func(string) (bool, error) { return false, nil }
	runWizard = func(context.Context) (*wizard.Result, error) {
		t.Fatal("wizard must not run")
		return nil, nil
	}

	require.NoError(t, Init(context.Background(), "existing.yaml"))
}

func TestInit_OverwritesWhenConfirmed(t *testing.T) {
	saveAndRestoreFactories(t)
	stdout = &bytes.Buffer{}

	fileExists = func(string) bool { return true }
	confirmOverwrite = func(string) (bool, error) { return true, nil }
	runWizard = func(context.Context) (*wizard.Result, error) { return wizardResult(), nil }
	called := false
	writeConfig = func(*config.Config, string) error {
		called = true
		return nil
	}

	require.NoError(t, Init(context.Background(), "existing.yaml"))
	assert.True(t, called)
}

func TestInit_WizardCanceled(t *testing.T) {
	saveAndRestoreFactories(t)
	stdout = &bytes.Buffer{}

	fileExists = func(string) bool { return false }
	runWizard = func(context.Context) (*wizard.Result, error) { return nil, errors.New("user aborted") }

	err := Init(context.Background(), "out.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard canceled")
}

func TestInit_WriteError(t *testing.T) {
	saveAndRestoreFactories(t)
	stdout = &bytes.Buffer{}

	fileExists = func(string) bool { return false }
	runWizard = func(context.Context) (*wizard.Result, error) { return wizardResult(), nil }
	writeConfig = func(*config.Config, string) error { return errors.New("read-only") }

	err := Init(context.Background(), "out.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write config")
}
