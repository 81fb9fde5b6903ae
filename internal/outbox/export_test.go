package outbox

import "time"

func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Pragma reads a pragma on a freshly opened pool connection.
func (s *Store) Pragma(name string) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}

	db.SetMaxIdleConns(0)
	defer db.SetMaxIdleConns(1)

	var v string
	err = db.QueryRow("PRAGMA " + name).Scan(&v)

	return v, err
}
