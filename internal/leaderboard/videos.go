package leaderboard

import (
	"bufio"
	"os"
	"strings"

	"persondiscovery/internal/services"
)

// ReadVideos reads a medium-name list, one name per line. Blank lines and
// lines starting with '#' are ignored.
func ReadVideos(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "leaderboard", "read videos", path, err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "leaderboard", "read videos", path, err)
	}
	return names, nil
}
