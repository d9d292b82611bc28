package common

import (
	"errors"
	"regexp"
)

var imdbTitleIDRE = regexp.MustCompile(`^tt\d+$`)

// ValidateIMDBTitleID checks if the given IMDB title ID is valid.
// It ensures the title starts with 'tt' followed by a numeric suffix.
func ValidateIMDBTitleID(ID string) error {

	if !imdbTitleIDRE.MatchString(ID) {
		return errors.New("invalid IMDB title")
	}

	return nil
}

// ValidateUserRating checks if the given star rating is valid.
// Ratings go from 1 to 10 stars.
func ValidateUserRating(rating int) error {
	if rating < 1 || rating > 10 {
		return errors.New("invalid rating, must be between 1 and 10")
	}

	return nil
}
