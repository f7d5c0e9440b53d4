package mailservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTemplate(t *testing.T) {
	template := &Template{}

	testCases := []struct {
		name         string
		templateName string
		data         any
		expectedErr  bool
	}{
		{
			name:         "activation email",
			templateName: "activation_email.html",
			data: struct {
				Username        string
				ActivationToken string
			}{
				Username:        "testuser",
				ActivationToken: "KDFJ3J2K4J5L6M7N8O9P0Q1R2S",
			},
			expectedErr: false,
		},
		{
			name:         "temporary password email",
			templateName: "temporary_password.html",
			data: struct {
				Username     string
				TempPassword string
			}{
				Username:     "testuser",
				TempPassword: "aZ1!TEMPPASS",
			},
			expectedErr: false,
		},
		{
			name:         "invalid template name",
			templateName: "invalid_template.html",
			data:         nil,
			expectedErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, p, h, err := template.ParseTemplate(tc.templateName, tc.data)
			assert.Equal(t, tc.expectedErr, err != nil)

			if err == nil {
				assert.NotEmpty(t, s.String())
				assert.NotEmpty(t, p.String())
				assert.NotEmpty(t, h.String())
			}
		})
	}
}
