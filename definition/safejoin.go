package definition

import (
	"path"
	"path/filepath"
	"strings"
)

// SafeJoin resolves the slash separated relative path rel against root. It
// fails closed: empty, absolute and drive qualified paths as well as paths
// that escape root (or address root itself) return ok=false.
func SafeJoin(root, rel string) (string, bool) {
	p := strings.ReplaceAll(rel, `\`, "/")
	if strings.TrimSpace(p) == "" || path.IsAbs(p) || filepath.IsAbs(rel) || hasDrive(p) {
		return "", false
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	base := filepath.Clean(root)
	full := filepath.Join(base, filepath.FromSlash(clean))
	r, err := filepath.Rel(base, full)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func hasDrive(p string) bool {
	return len(p) >= 2 && p[1] == ':' && ((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}
