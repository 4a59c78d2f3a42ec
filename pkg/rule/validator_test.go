package rule_test

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/rule"
)

type caseRequest struct {
	CaseNumber string `json:"case_number" rule:"required,max=64"`
	Filename   string `form:"filename" rule:"omitempty,blobname"`
	Internal   string `json:"-" rule:"omitempty,len=3"`
}

func TestEngineIsShared(t *testing.T) {
	assert.Same(t, rule.Engine(), rule.Engine())
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, rule.ValidateStruct(caseRequest{CaseNumber: "C-2024-001", Filename: "photo.jpg"}))

	errs := rule.Errors(rule.ValidateStruct(caseRequest{Filename: "../etc/passwd"}))
	assert.Equal(t, "failed on required", errs["case_number"])
	assert.Equal(t, "failed on blobname", errs["filename"])

	errs = rule.Errors(rule.ValidateStruct(caseRequest{CaseNumber: strings.Repeat("x", 65)}))
	assert.Equal(t, "failed on max=64", errs["case_number"])
}

func TestErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, rule.Errors(nil))
	assert.Nil(t, rule.Errors(assert.AnError))
}

func TestBlobName(t *testing.T) {
	cases := map[string]bool{
		"1700000000_01HZX_report.pdf": true,
		"a":                           true,
		"..a":                         true,
		"a.b.c":                       true,
		"":                            false,
		".":                           false,
		"..":                          false,
		"a/b":                         false,
		"..\\x":                       false,
		"a\x00b":                      false,
		strings.Repeat("a", rule.MaxBlobNameLen):   true,
		strings.Repeat("a", rule.MaxBlobNameLen+1): false,
	}

	for name, want := range cases {
		assert.Equal(t, want, rule.IsBlobName(name), "IsBlobName(%q)", name)

		err := rule.ValidateVar(name, "required,blobname")
		if want {
			assert.NoError(t, err, name)
		} else {
			assert.Error(t, err, name)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	require.NoError(t, rule.RegisterValidation("upper", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == strings.ToUpper(s)
	}))

	assert.NoError(t, rule.ValidateVar("INC", "upper"))
	assert.Error(t, rule.ValidateVar("inc", "upper"))
}
