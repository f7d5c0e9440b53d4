package postservice

import (
	"github.com/yqhuang/forumist/internal/common"
)

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(v.CheckStringLength(title, 1, 200), "title", "must not be more than 200 characters long")
}

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
}

func validateKeyword(v *common.Validator, keyword string) {
	v.Check(keyword != "", "keyword", "must be provided")
	v.Check(v.CheckStringLength(keyword, 1, 100), "keyword", "must not be more than 100 characters long")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}

func validateUsername(v *common.Validator, username string) {
	v.Check(username != "", "username", "must be provided")
}
