package storage

import (
	"database/sql"
	"errors"
)

// ErrRegionInUse is returned when deleting a region that still has schools.
var ErrRegionInUse = errors.New("region has schools")

func (s *Store) CreateRegion(name string) (Region, error) {
	res, err := s.db.Exec(`INSERT INTO regions (name) VALUES (?)`, name)
	if err != nil {
		return Region{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Region{}, err
	}
	return Region{ID: id, Name: name}, nil
}

func (s *Store) GetRegion(id int64) (Region, error) {
	var r Region
	err := s.db.QueryRow(`SELECT id, name FROM regions WHERE id = ?`, id).Scan(&r.ID, &r.Name)
	if err == sql.ErrNoRows {
		return Region{}, ErrNotFound
	}
	return r, err
}

func (s *Store) ListRegions() ([]Region, error) {
	rows, err := s.db.Query(`SELECT id, name FROM regions ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Region
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) UpdateRegion(id int64, name string) error {
	res, err := s.db.Exec(`UPDATE regions SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRegion removes an empty region. A region that still has schools
// returns ErrRegionInUse.
func (s *Store) DeleteRegion(id int64) error {
	var schools int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM schools WHERE region_id = ?`, id).Scan(&schools); err != nil {
		return err
	}
	if schools > 0 {
		return ErrRegionInUse
	}

	res, err := s.db.Exec(`DELETE FROM regions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSchool adds a school under an existing region.
func (s *Store) CreateSchool(name string, regionID int64) (School, error) {
	if _, err := s.GetRegion(regionID); err != nil {
		return School{}, err
	}
	res, err := s.db.Exec(`INSERT INTO schools (name, region_id) VALUES (?, ?)`, name, regionID)
	if err != nil {
		return School{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return School{}, err
	}
	return School{ID: id, Name: name, RegionID: regionID}, nil
}

func (s *Store) GetSchool(id int64) (School, error) {
	var sc School
	err := s.db.QueryRow(`SELECT id, name, region_id FROM schools WHERE id = ?`, id).Scan(&sc.ID, &sc.Name, &sc.RegionID)
	if err == sql.ErrNoRows {
		return School{}, ErrNotFound
	}
	return sc, err
}

// ListSchools returns schools ordered by name. Pass a non-nil regionID to
// restrict to one region.
func (s *Store) ListSchools(regionID *int64) ([]School, error) {
	query := `SELECT id, name, region_id FROM schools`
	var args []any
	if regionID != nil {
		query += ` WHERE region_id = ?`
		args = append(args, *regionID)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []School
	for rows.Next() {
		var sc School
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.RegionID); err != nil {
			return nil, err
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// DeleteSchool removes a school and detaches its documents. Uploads are
// never destroyed by org changes.
func (s *Store) DeleteSchool(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE documents SET school_id = NULL WHERE school_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM schools WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
