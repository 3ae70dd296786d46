package db

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

var timeType = reflect.TypeOf(time.Time{})

// timestampHook turns stored timestamps into time.Time. Firestore hands back
// time.Time, the local store hands back RFC3339 strings. Anything that cannot
// be read as a timestamp decodes to the current time.
func timestampHook(now func() time.Time) mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != timeType {
			return data, nil
		}
		switch v := data.(type) {
		case time.Time:
			return v.UTC(), nil
		case *time.Time:
			if v != nil {
				return v.UTC(), nil
			}
		case string:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return t.UTC(), nil
			}
		}
		return now().UTC(), nil
	}
}

// DecodeRecord copies a record's fields into out, a pointer to a struct tagged
// with `firestore` field names.
func DecodeRecord(rec *Record, out interface{}) error {
	return decodeData(rec.Data, out, time.Now)
}

func decodeData(data map[string]interface{}, out interface{}, now func() time.Time) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "firestore",
		WeaklyTypedInput: true,
		DecodeHook:       timestampHook(now),
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

// orNow returns t, or the current time when t is zero.
func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
