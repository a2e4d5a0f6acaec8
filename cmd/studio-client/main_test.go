package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateFlags(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		flags   appFlags
		wantErr string
	}{
		{
			name:    "missing text",
			flags:   appFlags{ref: "ref.wav", refText: "hi"},
			wantErr: errTextRequired,
		},
		{
			name:    "neither ref nor profile",
			flags:   appFlags{text: "hello"},
			wantErr: errRefOrProfile,
		},
		{
			name: "both ref and profile",
			flags: appFlags{
				text: "hello", ref: "ref.wav",
				refText: "hi", profile: "narrator",
			},
			wantErr: errCannotSpecifyBoth,
		},
		{
			name:    "ref without ref-text",
			flags:   appFlags{text: "hello", ref: "ref.wav"},
			wantErr: errRefTextRequired,
		},
		{
			name:  "valid reference request",
			flags: appFlags{text: "hello", ref: "ref.wav", refText: "hi"},
		},
		{
			name:  "valid profile request",
			flags: appFlags{text: "hello", profile: "narrator", style: "Bedtime"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := validateFlags(tc.flags)
			if tc.wantErr == "" {
				require.NoError(t, err)

				return
			}

			require.EqualError(t, err, tc.wantErr)
		})
	}
}
