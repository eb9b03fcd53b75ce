package configdef_test

import (
	"encoding/json"
	"testing"

	"github.com/edgevision/edgevisiond/pkg/configdef"
	"github.com/matryer/is"
)

func validBody() string {
	return `{
		"camera": {
			"title": "FrontDoor",
			"address": "0",
			"width": 640,
			"height": 480,
			"fps": 30
		},
		"processing": {
			"mode": "edges",
			"low_threshold": 50,
			"high_threshold": 150
		},
		"broadcast": {
			"port": 8888,
			"throttle_millis": 100
		},
		"render": {
			"refresh_fps": 60,
			"rotation": "none"
		}
	}`
}

func TestValidatePopulatedConfigPassesValidation(t *testing.T) {
	is := is.New(t)
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(validBody()), &config))
	is.NoErr(config.RunValidate())
}

func TestValidateFailsValidationForMissingCameraTitle(t *testing.T) {
	is := is.New(t)
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(validBody()), &config))
	config.Camera.Title = ""
	is.Equal(config.RunValidate().Error(), `Validation error in field "Title" of type "string" using validator "empty=false"`)
}

func TestValidateFailsValidationForOutOfRangeFPS(t *testing.T) {
	is := is.New(t)
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(validBody()), &config))
	config.Camera.FPS = 61
	is.Equal(config.RunValidate().Error(), `Validation error in field "FPS" of type "int" using validator "lte=60"`)
}

func TestValidateFailsValidationForUnknownMode(t *testing.T) {
	is := is.New(t)
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(validBody()), &config))
	config.Processing.Mode = "sepia"
	is.True(config.RunValidate() != nil)
}

func TestValidateFailsValidationForInvertedThresholds(t *testing.T) {
	is := is.New(t)
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(validBody()), &config))
	config.Processing.LowThreshold = 200
	is.Equal(config.RunValidate().Error(), "validation failed: low threshold must be below high threshold")
}

func TestValidateFailsValidationForOutOfRangePort(t *testing.T) {
	is := is.New(t)
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(validBody()), &config))
	config.Broadcast.Port = 70000
	is.Equal(config.RunValidate().Error(), `Validation error in field "Port" of type "int" using validator "lte=65535"`)
}
