package automatic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ReadGameLog reads every game record from a match log.
func ReadGameLog(path string) ([]GameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	var recs []GameRecord
	for {
		var rec GameRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, len(recs)+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// AnalyzeLogFile summarises a match log written by PlayMatch.
func AnalyzeLogFile(path string) (string, error) {
	recs, err := ReadGameLog(path)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "", fmt.Errorf("%w: %s has no games", ErrBadMatch, path)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Game < recs[j].Game })
	// Player i sat in seat (i - game) mod n.
	first := recs[0]
	n := len(first.Seats)
	names := make([]string, n)
	for i := range names {
		names[i] = first.Seats[((i-first.Game)%n+n)%n]
	}
	res := newMatchResult(names)
	for _, rec := range recs {
		if len(rec.Seats) != n {
			return "", fmt.Errorf("%w: game %d has %d seats, expected %d", ErrBadMatch, rec.Game, len(rec.Seats), n)
		}
		res.add(rec)
	}
	return res.Summary(), nil
}
