package schedule

import (
	"bytes"
	"os/exec"
	"strings"
)

// Crontab abstracts the host job runner so tests can substitute a fake.
// Replace swaps the whole list; individual entries are never edited.
type Crontab interface {
	List() ([]string, error)
	Replace(lines []string) error
}

// SystemCrontab shells out to crontab(1) for the invoking user.
type SystemCrontab struct{}

func (SystemCrontab) List() ([]string, error) {
	out, err := exec.Command("crontab", "-l").CombinedOutput()
	if err != nil {
		// "no crontab for <user>" exits non-zero; that is an empty list.
		if strings.Contains(strings.ToLower(string(out)), "no crontab") {
			return nil, nil
		}
		return nil, err
	}
	var lines []string
	for _, l := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func (SystemCrontab) Replace(lines []string) error {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	cmd := exec.Command("crontab", "-")
	cmd.Stdin = &buf
	return cmd.Run()
}
