package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// NumberToDurationHookFunc returns a DecodeHookFunc that converts plain numbers to time.Duration.
// Numbers are read as seconds, so "check_interval": 5 in a JSON file means five seconds.
// Strings are left to mapstructure.StringToTimeDurationHookFunc.
func NumberToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		case time.Duration:
			return v, nil
		case string:
			return v, nil
		default:
			if f.Kind() == reflect.Bool {
				return nil, fmt.Errorf("cannot decode %v into duration", data)
			}
			return data, nil
		}
	}
}

// CompositeDecodeHook 组合所有解码钩子
func CompositeDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		NumberToDurationHookFunc(),
	)
}

func decoderConfig() viper.DecoderConfigOption {
	return viper.DecodeHook(CompositeDecodeHook())
}
