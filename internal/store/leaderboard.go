package store

import "fmt"

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Name    string `json:"name"`
	Wins    int    `json:"wins"`
	Address string `json:"address"`
	Streak  int    `json:"streak"`
}

// SeedLeaderboard is installed into an empty leaderboard table.
var SeedLeaderboard = []LeaderboardEntry{
	{Name: "clawdywithmeatballs 🍝", Wins: 5, Address: "0x69fF...D62", Streak: 3},
	{Name: "BattleBot Alpha", Wins: 3, Address: "0x1234...5678", Streak: 1},
	{Name: "CryptoCrab", Wins: 2, Address: "0xabcd...efgh", Streak: 2},
	{Name: "NeonNinja", Wins: 2, Address: "0x9876...5432", Streak: 0},
	{Name: "ShadowAgent", Wins: 1, Address: "0xfedc...ba98", Streak: 1},
}

func (s *Store) seedLeaderboard() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM leaderboard`).Scan(&n); err != nil {
		return fmt.Errorf("count leaderboard: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, e := range SeedLeaderboard {
		if err := s.UpsertLeaderboard(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpsertLeaderboard(e LeaderboardEntry) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.Exec(`
INSERT INTO leaderboard (name, wins, address, streak) VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET wins=excluded.wins, address=excluded.address, streak=excluded.streak`,
		e.Name, e.Wins, e.Address, e.Streak)
	if err != nil {
		return fmt.Errorf("upsert leaderboard: %w", err)
	}
	return nil
}

// RecordWin adds a win for name, extending its streak.
func (s *Store) RecordWin(name, address string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.Exec(`
INSERT INTO leaderboard (name, wins, address, streak) VALUES (?, 1, ?, 1)
ON CONFLICT(name) DO UPDATE SET wins=leaderboard.wins+1, streak=leaderboard.streak+1`, name, address)
	if err != nil {
		return fmt.Errorf("record win: %w", err)
	}
	return nil
}

// RecordLoss resets the streak for name.
func (s *Store) RecordLoss(name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE leaderboard SET streak = 0 WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("record loss: %w", err)
	}
	return nil
}

// Leaderboard returns entries ordered by wins, then streak, then name.
func (s *Store) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
SELECT name, wins, address, streak FROM leaderboard
ORDER BY wins DESC, streak DESC, name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	defer rows.Close()

	var out []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Wins, &e.Address, &e.Streak); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
