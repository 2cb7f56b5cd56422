package assembler

import (
	"github.com/go-git/go-git/v5"
)

// DetectRevision describes the git revision of the repository containing dir
// as "branch@abbrev", or just the abbreviated hash on a detached HEAD. It
// returns "" when dir is not inside a repository or HEAD has no commit.
func DetectRevision(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}

	hash := head.Hash().String()
	if len(hash) > 7 {
		hash = hash[:7]
	}
	if head.Name().IsBranch() {
		return head.Name().Short() + "@" + hash
	}
	return hash
}
