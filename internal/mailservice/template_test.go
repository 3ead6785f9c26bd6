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
				ActivationToken string
			}{
				ActivationToken: "JRUWG5DUN5VWK3S7MZXXEX3UMVZXI2LOM4",
			},
			expectedErr: false,
		},
		{
			name:         "report notice",
			templateName: "report_notice.html",
			data: struct {
				ReportID   int
				PostID     int
				ReporterID int
				Reason     string
			}{
				ReportID:   1,
				PostID:     7,
				ReporterID: 3,
				Reason:     "spam",
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
