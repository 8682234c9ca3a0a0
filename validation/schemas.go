package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxEmailLen    = 255
	maxNameLen     = 100
	maxQuestionLen = 500
	minQuestionLen = 5
	maxOptionLen   = 200
	minOptions     = 2
	maxOptions     = 10
	maxOptionIndex = 9
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	nameRe  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z' -]*$`)
)

// LoginInput is the credentials payload for sign-in.
type LoginInput struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate normalizes the email in place and returns field errors.
func (in *LoginInput) Validate() FieldErrors {
	fe := FieldErrors{}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Email == "" || len(in.Email) > maxEmailLen || !emailRe.MatchString(in.Email) {
		fe.Add("email", "please enter a valid email address")
	}
	if len(in.Password) < 6 || len(in.Password) > 128 {
		fe.Add("password", "password must be between 6 and 128 characters")
	}
	return fe
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate enforces the name and password policy, then sanitizes name and
// email in place for storage. The name is matched against the allowed
// character set before sanitization; escaping an apostrophe to &#39; must not
// make a legal name illegal.
func (in *RegisterInput) Validate() FieldErrors {
	fe := FieldErrors{}
	name := strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if n := utf8.RuneCountInString(name); n < 2 {
		fe.Add("name", "name must be at least 2 characters")
	} else if n > maxNameLen {
		fe.Add("name", "name must be at most 100 characters")
	} else if !nameRe.MatchString(name) {
		fe.Add("name", "name may only contain letters, spaces, hyphens and apostrophes")
	}
	in.Name = SanitizeText(name, maxNameLen)

	if in.Email == "" || len(in.Email) > maxEmailLen || !emailRe.MatchString(in.Email) {
		fe.Add("email", "please enter a valid email address")
	}

	if len(in.Password) < 8 || len(in.Password) > 128 {
		fe.Add("password", "password must be between 8 and 128 characters")
	} else if !passwordComplex(in.Password) {
		fe.Add("password", "password must contain an uppercase letter, a lowercase letter, a digit and a special character")
	}
	return fe
}

func passwordComplex(p string) bool {
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

// PollParams is the sanitized, normalized result of poll input validation.
type PollParams struct {
	Question              string
	Options               []string
	AllowMultipleVotes    bool
	RequireAuthentication bool
}

// CreatePollInput is the payload for poll creation. The boolean flags are
// pointers so that an absent field can take its default (false and true
// respectively).
type CreatePollInput struct {
	Question              string   `form:"question" json:"question"`
	Options               []string `form:"options" json:"options"`
	AllowMultipleVotes    *bool    `form:"allow_multiple_votes" json:"allow_multiple_votes"`
	RequireAuthentication *bool    `form:"require_authentication" json:"require_authentication"`
}

// Validate sanitizes and checks the poll body, returning normalized params.
func (in *CreatePollInput) Validate() (PollParams, FieldErrors) {
	question, options, fe := validatePollBody(in.Question, in.Options)

	params := PollParams{
		Question:              question,
		Options:               options,
		AllowMultipleVotes:    false,
		RequireAuthentication: true,
	}
	if in.AllowMultipleVotes != nil {
		params.AllowMultipleVotes = *in.AllowMultipleVotes
	}
	if in.RequireAuthentication != nil {
		params.RequireAuthentication = *in.RequireAuthentication
	}
	return params, fe
}

// validatePollBody checks question and options and returns their sanitized
// forms. Length bounds apply to the trimmed pre-escape text, counted in
// runes; escaping would otherwise inflate short questions past the minimum.
func validatePollBody(rawQuestion string, rawOptions []string) (string, []string, FieldErrors) {
	fe := FieldErrors{}

	trimmed := strings.TrimSpace(rawQuestion)
	if n := utf8.RuneCountInString(trimmed); n < minQuestionLen || n > maxQuestionLen {
		fe.Add("question", "question must be between 5 and 500 characters")
	}
	question := SanitizeText(trimmed, 0)

	options := SanitizeOptions(rawOptions, maxOptionLen)
	if len(options) < minOptions || len(options) > maxOptions {
		fe.Add("options", "a poll needs between 2 and 10 options")
	} else if dup, ok := duplicateOption(options); ok {
		fe.Add("options", "duplicate option: "+dup)
	}
	return question, options, fe
}

// duplicateOption reports the first case-insensitive duplicate, if any.
func duplicateOption(options []string) (string, bool) {
	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		key := strings.ToLower(opt)
		if _, ok := seen[key]; ok {
			return opt, true
		}
		seen[key] = struct{}{}
	}
	return "", false
}

// UpdatePollInput is the payload for poll updates. The voting flags are
// fixed at creation and not part of the update surface.
type UpdatePollInput struct {
	Question string   `form:"question" json:"question"`
	Options  []string `form:"options" json:"options"`
}

// Validate checks and sanitizes the question and options.
func (in *UpdatePollInput) Validate() (string, []string, FieldErrors) {
	return validatePollBody(in.Question, in.Options)
}

// VoteInput is the payload for casting a vote. OptionIndex is a pointer so a
// missing field is distinguishable from index 0.
type VoteInput struct {
	OptionIndex *int `form:"option_index" json:"option_index"`
}

// Validate checks the index range. The live bound against the poll's current
// option count is enforced by the poll layer.
func (in *VoteInput) Validate() (int, FieldErrors) {
	fe := FieldErrors{}
	if in.OptionIndex == nil {
		fe.Add("option_index", "please select an option")
		return 0, fe
	}
	idx := *in.OptionIndex
	if idx < 0 || idx > maxOptionIndex {
		fe.Add("option_index", "selected option is out of range")
	}
	return idx, fe
}
