package engageservice

import "github.com/blurblog/blur/internal/common"

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
