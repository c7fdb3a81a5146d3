package api

import "testing"

func TestValidateOptionsBounds(t *testing.T) {
	cases := []struct {
		name    string
		opts    Options
		wantErr bool
		param   string
	}{
		{"defaults ok", DefaultOptions(), false, ""},
		{"temperature too high", Options{Temperature: 2.1, TopP: 1}, true, "temperature"},
		{"temperature too low", Options{Temperature: -0.1, TopP: 1}, true, "temperature"},
		{"top_p too high", Options{Temperature: 1, TopP: 1.5}, true, "top_p"},
		{"frequency_penalty out of range", Options{Temperature: 1, TopP: 1, FrequencyPenalty: 3}, true, "frequency_penalty"},
		{"presence_penalty out of range", Options{Temperature: 1, TopP: 1, PresencePenalty: -3}, true, "presence_penalty"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateOptions(c.opts)
			if c.wantErr != (err != nil) {
				t.Fatalf("ValidateOptions(%+v) error = %v, wantErr %v", c.opts, err, c.wantErr)
			}
			if c.wantErr {
				statusErr, ok := err.(StatusError)
				if !ok {
					t.Fatalf("error is %T, want StatusError", err)
				}
				if statusErr.Param != c.param {
					t.Fatalf("Param = %q, want %q", statusErr.Param, c.param)
				}
				if statusErr.StatusCode != 400 || statusErr.Type != ErrTypeInvalidRequest {
					t.Fatalf("unexpected status/type: %+v", statusErr)
				}
			}
		})
	}
}
