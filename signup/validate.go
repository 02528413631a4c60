package signup

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// discord snowflakes are 17 to 19 decimal digits
var discordIDPattern = regexp.MustCompile(`^[0-9]{17,19}$`)

// defaultPhoneRegion is assumed when a phone number carries no country
// prefix.
const defaultPhoneRegion = "US"

// ValidDiscordID reports whether id is a well-formed snowflake.
func ValidDiscordID(id string) bool {
	return discordIDPattern.MatchString(id)
}

// NormalizePhone parses the number and returns its E.164 form.
func NormalizePhone(phone string) (string, error) {
	num, err := phonenumbers.Parse(phone, defaultPhoneRegion)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryValidation, "phone number could not be parsed")
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("phone number is not valid", errors.CategoryValidation)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// validateRequest covers the plain field rules. The ordered gates own
// team name, invite, and discord id.
func validateRequest(req Request) error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&req.Timezone, validation.Length(0, 64)),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "signup payload is invalid")
	}

	if req.Phone != "" {
		if _, err := NormalizePhone(req.Phone); err != nil {
			return err
		}
	}

	return nil
}
