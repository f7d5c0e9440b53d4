package categoryservice

import (
	"github.com/yqhuang/forumist/internal/common"
)

func validateName(v *common.Validator, name string) {
	v.Check(name != "", "name", "must be provided")
	v.Check(v.CheckStringLength(name, 1, 50), "name", "must not be more than 50 characters long")
}

func validateDescription(v *common.Validator, description string) {
	v.Check(v.CheckStringLength(description, 0, 500), "description", "must not be more than 500 characters long")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
