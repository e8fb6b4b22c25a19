package store

// NewWithQuerier builds a Postgres store on a fake database with fixed ids.
func NewWithQuerier(db querier, ids ...string) *Postgres {
	s := newPostgres(db)
	next := 0
	s.newID = func() string {
		id := ids[next%len(ids)]
		next++
		return id
	}
	return s
}
