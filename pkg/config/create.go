package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/edgevision/edgevisiond/pkg/configdef"
	"github.com/edgevision/edgevisiond/pkg/log"
	"github.com/pkg/errors"
	"github.com/tauraamui/xerror"
)

func defaultValues() configdef.Values {
	return configdef.Values{
		Camera: configdef.Camera{
			Title:   "Camera",
			Address: "0",
			Width:   640,
			Height:  480,
			FPS:     30,
		},
		Processing: configdef.Processing{
			Mode:          "edges",
			LowThreshold:  50,
			HighThreshold: 150,
		},
		Broadcast: configdef.Broadcast{
			Port:           8888,
			ThrottleMillis: 100,
		},
		Render: configdef.Render{
			RefreshFPS: 60,
			Rotation:   "none",
		},
	}
}

// Create writes a default config to the resolved location. An
// existing file is never overwritten.
func Create() error {
	data, err := json.MarshalIndent(defaultValues(), "", "	")
	if err != nil {
		return errors.Errorf("unable to marshal default config: %v", err)
	}

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if err := writeConfigToDisk(data, path, false); err != nil {
		if errors.Is(err, os.ErrExist) {
			return configdef.ErrConfigAlreadyExists
		}
		return err
	}

	log.Info("Created default config at %s", path) //nolint
	return nil
}

func writeConfigToDisk(data []byte, path string, overwrite bool) error {
	if err := fs.MkdirAll(filepath.Dir(path), os.ModePerm|os.ModeDir); err != nil {
		return xerror.Errorf("unable to create config parent dir: %w", err)
	}

	flags := os.O_RDWR | os.O_CREATE
	if !overwrite {
		flags |= os.O_EXCL
	}

	file, err := fs.OpenFile(path, flags, 0666)
	if err != nil {
		return xerror.Errorf("unable to create/open file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return xerror.Errorf("unable to write config data: %w", err)
	}
	return nil
}
