package commentservice

import (
	"github.com/yqhuang/forumist/internal/common"
)

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
	v.Check(v.CheckStringLength(content, 1, 2000), "content", "must not be more than 2000 characters long")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}

func validateUsername(v *common.Validator, username string) {
	v.Check(username != "", "username", "must be provided")
}
