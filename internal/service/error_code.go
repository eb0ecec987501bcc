package service

import (
	"regexp"
	"sort"
	"strings"

	"gitee.com/czyczk/fabric-netadmin/internal/blockchain/bcao"

	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/hashicorp/go-version"
)

// checkName rejects empty names and names that could escape a directory when used in a path.
func checkName(what, name string) error {
	if strings.TrimSpace(name) == "" {
		return errorcode.New(errorcode.KindBadRequest, "%v不能为空", what)
	}

	if strings.ContainsAny(name, "/\\ ") || strings.Contains(name, "..") {
		return errorcode.New(errorcode.KindBadRequest, "%v '%v' 含有非法字符", what, name)
	}

	return nil
}

// chaincodeVersionPattern is the character class lscc accepts for chaincode versions.
var chaincodeVersionPattern = regexp.MustCompile(`^[A-Za-z0-9_.+-]+$`)

func checkChaincodeVersion(v string) error {
	if !chaincodeVersionPattern.MatchString(v) {
		return errorcode.New(errorcode.KindBadRequest, "链码版本 '%v' 无效", v)
	}

	return nil
}

// lessChaincodeVersion compares two versions numerically when both are semver-like and lexically otherwise.
func lessChaincodeVersion(a, b string) bool {
	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)
	if errA == nil && errB == nil {
		return va.LessThan(vb)
	}

	return a < b
}

// sortChaincodes orders chaincodes by name, then by version.
func sortChaincodes(infos []*bcao.ChaincodeInfo) []*bcao.ChaincodeInfo {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Name != infos[j].Name {
			return infos[i].Name < infos[j].Name
		}
		return lessChaincodeVersion(infos[i].Version, infos[j].Version)
	})

	return infos
}

func checkInvocation(invocation *ChaincodeInvocation) error {
	if invocation == nil {
		return errorcode.New(errorcode.KindBadRequest, "缺少链码调用参数")
	}
	if err := checkName("通道名", invocation.ChannelName); err != nil {
		return err
	}
	if err := checkName("链码 ID", invocation.ChaincodeID); err != nil {
		return err
	}

	return nil
}
