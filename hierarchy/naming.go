package hierarchy

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// 后端（如 AWS Bedrock）限制工具名必须匹配 ^[A-Za-z][A-Za-z0-9_-]*$。
// 显示名可能是任意 Unicode，因此在组装期做一次纯函数式的名称清洗，
// 结果作为稳定标识存在节点上，运行期不再做任何函数身份操作。

var (
	invalidToolChars = regexp.MustCompile(`[^a-z0-9_]`)
	repeatedUnder    = regexp.MustCompile(`_+`)
	validToolName    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// SanitizeToolName 从显示名派生一个后端安全的工具标识。
// 规则：小写 → 非 [a-z0-9_] 替换为 _ → 折叠/去首尾 _；
// 若结果为空或不含字母（纯中文等），退化为 prefix_<hash8>；
// 若不以字母开头，加 prefix_ 前缀。对相同输入输出确定。
func SanitizeToolName(display, prefix string) string {
	base := strings.ToLower(display)
	base = invalidToolChars.ReplaceAllString(base, "_")
	base = repeatedUnder.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")

	if base == "" || !containsLetter(base) {
		return prefix + "_" + nameHash(display)
	}
	if !isLetter(base[0]) {
		base = prefix + "_" + base
	}
	return base
}

// IsValidToolName 检查标识是否满足后端工具命名规则。
func IsValidToolName(name string) bool {
	return validToolName.MatchString(name)
}

// nameHash 返回原始名称的确定性短哈希。
func nameHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:8]
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func containsLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		if isLetter(s[i]) {
			return true
		}
	}
	return false
}
