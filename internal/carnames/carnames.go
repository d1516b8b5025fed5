// Package carnames loads the CarNames.json database shipped with the
// install, used to label car model files with readable names.
package carnames

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Car is one entry of CarNames.json.
type Car struct {
	ID     string
	Name   string
	First  string // first name part as the game renders it
	Second string
}

type DB struct {
	cars []Car // sorted by ID
	byID map[string]Car
}

// Empty returns a usable database with no entries, for installs that
// ship without CarNames.json.
func Empty() *DB {
	return &DB{byID: make(map[string]Car)}
}

type carEntry struct {
	Name   string `json:"name"`
	First  string `json:"first"`
	Second string `json:"second"`
}

// Load reads CarNames.json. The file maps CarID to name parts.
func Load(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading car names: %w", err)
	}

	var raw map[string]carEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing car names: %w", err)
	}

	db := Empty()
	for id, e := range raw {
		car := Car{ID: id, Name: e.Name, First: e.First, Second: e.Second}
		db.byID[id] = car
		db.cars = append(db.cars, car)
	}
	sort.Slice(db.cars, func(i, j int) bool { return db.cars[i].ID < db.cars[j].ID })
	return db, nil
}

func (db *DB) Count() int {
	return len(db.cars)
}

// Get returns the car for an exact ID.
func (db *DB) Get(id string) (Car, bool) {
	c, ok := db.byID[id]
	return c, ok
}

// Search matches the query case-insensitively against ID and all name
// parts. Results keep the ID sort order.
func (db *DB) Search(query string) []Car {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []Car
	for _, c := range db.cars {
		if strings.Contains(strings.ToLower(c.ID), q) ||
			strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.First), q) ||
			strings.Contains(strings.ToLower(c.Second), q) {
			out = append(out, c)
		}
	}
	return out
}

// Label returns "id (name)" for a car model file, or just the base name
// when the ID is unknown.
func (db *DB) Label(file string) string {
	base := filepath.Base(file)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	if c, ok := db.byID[id]; ok && c.Name != "" {
		return id + " (" + c.Name + ")"
	}
	return base
}
