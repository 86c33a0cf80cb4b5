package config

import (
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Token string `toml:"token"`
	Host  string `toml:"host"`
	Port  string `toml:"port"`

	Libonnx string `toml:"libonnx"`

	ModelPath   string `toml:"model_path"`
	ModelUrl    string `toml:"model_url"`
	ModelFamily string `toml:"model_family"`
	NumThreads  int    `toml:"num_threads"`
	UseCuda     bool   `toml:"use_cuda"`

	PersonClassIndex  int     `toml:"person_class_index"`
	PersonThreshold   float32 `toml:"person_threshold"`
	KeepIntermediates bool    `toml:"keep_intermediates"`
	BackgroundPath    string  `toml:"background_path"`
}

var (
	cfg = Config{
		Token:            "",
		Host:             "0.0.0.0",
		Port:             "8000",
		ModelPath:        "models/deeplabv3.onnx",
		ModelFamily:      "deeplabv3",
		NumThreads:       4,
		PersonClassIndex: 15,
		PersonThreshold:  0.5,
	}
	loadOnce sync.Once
)

func C() Config {
	loadOnce.Do(func() {
		if _, err := os.Stat("config.toml"); err == nil {
			data, err := os.ReadFile("config.toml")
			if err != nil {
				panic(err)
			}
			if err := toml.Unmarshal(data, &cfg); err != nil {
				panic(err)
			}
		}
	})
	return cfg
}
