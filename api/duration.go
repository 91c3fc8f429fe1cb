package api

import "time"

// Duration wraps time.Duration to serialize as a duration string
// ("600s", "1h") the way the config files and /info spell intervals.
type Duration time.Duration

// D returns the wrapped time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Unix returns the duration in whole seconds.
func (d Duration) Unix() int64 { return int64(time.Duration(d) / time.Second) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
