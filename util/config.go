package util

import (
	"os"

	"gopkg.in/yaml.v3"
)

func LoadConfig(filename string, v interface{}) error {
	if contents, err := os.ReadFile(filename); err != nil {
		return err
	} else {
		if err = yaml.Unmarshal(contents, v); err != nil {
			return err
		}
		return nil
	}
}

func SaveConfig(filename string, v interface{}) error {
	if contents, err := yaml.Marshal(v); err != nil {
		return err
	} else {
		if err = os.WriteFile(filename, contents, 0644); err != nil {
			return err
		}
		return nil
	}
}
