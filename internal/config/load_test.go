package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/dragonrelay/pkg/configdef"
)

type LoadConfigTestSuite struct {
	suite.Suite
	configResolver   configdef.Resolver
	fs               afero.Fs
	path             string
	configFile       afero.File
	userConfigDirRef func() (string, error)
}

func (suite *LoadConfigTestSuite) SetupSuite() {
	logging.CurrentLoggingLevel = logging.SilentLevel
	suite.fs = afero.NewMemMapFs()
	suite.configResolver = DefaultResolver()

	// use in memory FS in implementation for tests
	fs = suite.fs
	suite.userConfigDirRef = userConfigDir
	userConfigDir = func() (string, error) { return "/testroot/.config", nil }
}

func (suite *LoadConfigTestSuite) TearDownSuite() {
	logging.CurrentLoggingLevel = logging.WarnLevel
	fs = afero.NewOsFs()
	userConfigDir = suite.userConfigDirRef
}

func (suite *LoadConfigTestSuite) SetupTest() {
	path, err := resolveConfigPath()
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.fs.MkdirAll(filepath.Dir(path), os.ModeDir|os.ModePerm))
	suite.path = path

	configFile, err := suite.fs.Create(path)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), configFile)

	suite.configFile = configFile

	// can be overridden this so reset it back before
	// each test to ensure that it's an opt in thing per
	// individual test
	suite.overwriteTestConfig(
		`{
			"debug": true,
			"listen_address": "127.0.0.1:8088",
			"metrics_enabled": true,
			"camera": {
				"title": "Front Door",
				"address": "rtsp://192.168.1.20:554/stream",
				"fps": 15,
				"width": 640,
				"height": 480,
				"jpeg_quality": 70
			}
		}`,
	)
}

func (suite *LoadConfigTestSuite) overwriteTestConfig(config string) {
	require.NoError(suite.T(), suite.configFile.Truncate(0))
	_, err := suite.configFile.Seek(0, 0)
	require.NoError(suite.T(), err)
	_, err = suite.configFile.WriteString(config)
	assert.NoError(suite.T(), err)
}

func (suite *LoadConfigTestSuite) TearDownTest() {
	require.NoError(suite.T(), suite.configFile.Close())
	suite.fs.Remove(suite.path)
}

func (suite *LoadConfigTestSuite) TestResolvedPathUsesVendorAndAppName() {
	assert.Equal(suite.T(), "/testroot/.config/tacusci/dragonrelay/config.json", suite.path)
}

func (suite *LoadConfigTestSuite) TestResolvedPathPrefersEnvVariable() {
	os.Setenv("DRAGON_RELAY_CONFIG", "/elsewhere/relay.json")
	defer os.Unsetenv("DRAGON_RELAY_CONFIG")

	path, err := resolveConfigPath()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "/elsewhere/relay.json", path)
}

func (suite *LoadConfigTestSuite) TestLoadConfig() {
	config, err := suite.configResolver.Resolve()
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), configdef.Values{
		Debug:          true,
		ListenAddress:  "127.0.0.1:8088",
		MetricsEnabled: true,
		Camera: configdef.Camera{
			Title:       "Front Door",
			Address:     "rtsp://192.168.1.20:554/stream",
			FPS:         15,
			Width:       640,
			Height:      480,
			JPEGQuality: 70,
		},
	}, config)
}

func (suite *LoadConfigTestSuite) TestLoadConfigAppliesDefaults() {
	suite.overwriteTestConfig(`{"camera": {"title": "Webcam", "address": "0"}}`)

	config, err := suite.configResolver.Resolve()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), ":5000", config.ListenAddress)
	assert.Equal(suite.T(), 80, config.Camera.JPEGQuality)
	assert.False(suite.T(), config.Camera.Mock)
}

func (suite *LoadConfigTestSuite) TestConfigLoadFailsValidationOnMissingTitle() {
	suite.overwriteTestConfig(`{"camera": {"address": "0"}}`)

	config, err := suite.configResolver.Resolve()
	require.Error(suite.T(), err)
	require.Empty(suite.T(), config)

	assert.EqualError(suite.T(), err, `Validation error in field "Title" of type "string" using validator "empty=false"`)
}

func (suite *LoadConfigTestSuite) TestConfigLoadFailsOnInvalidJSON() {
	suite.overwriteTestConfig(`{"debug" true,}`)

	config, err := suite.configResolver.Resolve()
	require.Error(suite.T(), err)
	require.Empty(suite.T(), config)

	assert.Contains(suite.T(), err.Error(), "parsing configuration error: ")
}

func (suite *LoadConfigTestSuite) TestConfigLoadFailsWhenFileMissing() {
	require.NoError(suite.T(), suite.fs.Remove(suite.path))

	_, err := suite.configResolver.Resolve()
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, os.ErrNotExist)
}

func TestLoadConfigTestSuite(t *testing.T) {
	suite.Run(t, &LoadConfigTestSuite{})
}
