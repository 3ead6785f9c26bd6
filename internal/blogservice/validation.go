package blogservice

import (
	"regexp"

	"github.com/blurblog/blur/internal/common"
)

var (
	TitleRX = regexp.MustCompile("^[a-zA-Z0-9 ]+$")
	SlugRX  = regexp.MustCompile("^[a-z0-9]+(?:-[a-z0-9]+)*$")
	TagRX   = regexp.MustCompile("^[a-z0-9-]+$")
)

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(v.CheckStringLength(title, 3, 100), "title", "must be between 3 and 100 characters long")
	v.Check(TitleRX.MatchString(title), "title", "must only contain letters, numbers, and spaces")
}

func validateSlug(v *common.Validator, slug string) {
	v.Check(slug != "", "slug", "must be provided")
	v.Check(v.CheckStringLength(slug, 3, 100), "slug", "must be between 3 and 100 characters long")
	v.Check(SlugRX.MatchString(slug), "slug", "must be lowercase letters, numbers, and hyphens")
}

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
}

func validateTags(v *common.Validator, tags []string) {
	v.Check(len(tags) <= 10, "tags", "must not contain more than 10 tags")
	for _, tag := range tags {
		if !TagRX.MatchString(tag) {
			v.AddError("tags", "must be lowercase letters, numbers, and hyphens")
			return
		}
	}
}

func validateStatus(v *common.Validator, status RequestStatus) {
	v.Check(status == RequestAccepted || status == RequestRejected, "status", "must be either accepted or rejected")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
