package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zheng/rdecomp/internal/program"
)

// FunctionSummary is a function row without its body
type FunctionSummary struct {
	ID        program.FunctionID `json:"id"`
	Name      string             `json:"name"`
	Signature string             `json:"signature,omitempty"`
	Error     string             `json:"error,omitempty"`
	Depth     int                `json:"depth,omitempty"`
}

// Stats holds row counts of the program database
type Stats struct {
	Program   string `json:"program"`
	Functions int64  `json:"functions"`
	Calls     int64  `json:"calls"`
	Types     int64  `json:"types"`
	Structs   int64  `json:"structs"`
	Enums     int64  `json:"enums"`
	Failed    int64  `json:"failed"`
}

// entry and address convert between entry addresses and SQLite integers,
// which are signed.
func entry(id program.FunctionID) int64 { return int64(id) }

func address(v int64) program.FunctionID { return program.FunctionID(uint64(v)) }

// Import replaces the database contents with prog in one transaction
func (db *DB) Import(prog *program.Program) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(clearSQL); err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('program', ?)`, prog.Name); err != nil {
		return err
	}

	if err := insertTypes(tx, prog.Types()); err != nil {
		return err
	}
	if err := insertFunctions(tx, prog.Functions()); err != nil {
		return err
	}

	return tx.Commit()
}

func insertTypes(tx *sql.Tx, types []*program.DataType) error {
	typeStmt, err := tx.Prepare(`INSERT INTO types (id, kind, name, elem, length) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer typeStmt.Close()
	memberStmt, err := tx.Prepare(
		`INSERT INTO members (type_id, seq, name, member_type, byte_offset, comment) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer memberStmt.Close()
	valueStmt, err := tx.Prepare(`INSERT INTO enum_values (type_id, seq, name, value, comment) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer valueStmt.Close()

	for _, t := range types {
		if _, err := typeStmt.Exec(t.ID, t.Kind, t.Name, nullString(string(t.Elem)), t.Length); err != nil {
			return fmt.Errorf("failed to insert type %q: %w", t.ID, err)
		}
		for i, m := range t.Members {
			if _, err := memberStmt.Exec(t.ID, i, m.Name, m.Type, m.Offset, nullString(m.Comment)); err != nil {
				return fmt.Errorf("failed to insert member %d of %q: %w", i, t.ID, err)
			}
		}
		for i, v := range t.Values {
			if _, err := valueStmt.Exec(t.ID, i, v.Name, v.Value, nullString(v.Comment)); err != nil {
				return fmt.Errorf("failed to insert value %s of %q: %w", v.Name, t.ID, err)
			}
		}
	}
	return nil
}

func insertFunctions(tx *sql.Tx, fns []*program.Function) error {
	fnStmt, err := tx.Prepare(`INSERT INTO functions (entry, name, signature, body, error) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer fnStmt.Close()
	callStmt, err := tx.Prepare(`INSERT INTO calls (caller, seq, callee) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer callStmt.Close()
	varStmt, err := tx.Prepare(`INSERT INTO variables (function, seq, name, type_id, param) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer varStmt.Close()

	// Rows first, so that call edges can reference any function.
	for _, fn := range fns {
		if _, err := fnStmt.Exec(entry(fn.ID), fn.Name, fn.Signature, fn.Body, nullString(fn.Error)); err != nil {
			return fmt.Errorf("failed to insert function %s: %w", fn.Name, err)
		}
	}
	for _, fn := range fns {
		for i, callee := range fn.Calls {
			if _, err := callStmt.Exec(entry(fn.ID), i, entry(callee)); err != nil {
				return fmt.Errorf("failed to insert call %s -> %s: %w", fn.ID, callee, err)
			}
		}
		for i, v := range fn.Variables {
			if _, err := varStmt.Exec(entry(fn.ID), i, v.Name, v.Type, v.Param); err != nil {
				return fmt.Errorf("failed to insert variable %s of %s: %w", v.Name, fn.Name, err)
			}
		}
	}
	return nil
}

// ResolveFunction tries ref as a hex entry address first, then as a name
func (db *DB) ResolveFunction(ref string) (program.FunctionID, error) {
	if addr, ok := program.ParseAddress(ref); ok {
		var v int64
		err := db.conn.QueryRow(`SELECT entry FROM functions WHERE entry = ?`, entry(program.FunctionID(addr))).Scan(&v)
		if err == nil {
			return address(v), nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
	}

	rows, err := db.conn.Query(`SELECT entry FROM functions WHERE name = ? ORDER BY entry`, ref)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var ids []program.FunctionID
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return 0, err
		}
		ids = append(ids, address(v))
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	switch len(ids) {
	case 0:
		return 0, fmt.Errorf("function %q: %w", ref, program.ErrNotFound)
	case 1:
		return ids[0], nil
	}
	addrs := make([]string, len(ids))
	for i, id := range ids {
		addrs[i] = id.String()
	}
	return 0, fmt.Errorf("%w %q, found %d matches: %s", program.ErrAmbiguous, ref, len(ids), strings.Join(addrs, ", "))
}

// FunctionName returns the display name of a function
func (db *DB) FunctionName(id program.FunctionID) (string, error) {
	var name string
	err := db.conn.QueryRow(`SELECT name FROM functions WHERE entry = ?`, entry(id)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("function %s: %w", id, program.ErrNotFound)
	}
	return name, err
}

// CalledFunctions returns the call targets of a function, in export order
func (db *DB) CalledFunctions(id program.FunctionID) ([]program.FunctionID, error) {
	if err := db.requireFunction(id); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(`SELECT callee FROM calls WHERE caller = ? ORDER BY seq`, entry(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []program.FunctionID
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		calls = append(calls, address(v))
	}
	return calls, rows.Err()
}

// VariablesOf returns parameters and locals of a function, in export order
func (db *DB) VariablesOf(id program.FunctionID) ([]program.Variable, error) {
	if err := db.requireFunction(id); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(`SELECT name, type_id, param FROM variables WHERE function = ? ORDER BY seq`, entry(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vars []program.Variable
	for rows.Next() {
		var v program.Variable
		if err := rows.Scan(&v.Name, &v.Type, &v.Param); err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	return vars, rows.Err()
}

// DataType loads a type with its members or enum values
func (db *DB) DataType(id program.TypeID) (*program.DataType, error) {
	var t program.DataType
	var elem sql.NullString
	err := db.conn.QueryRow(`SELECT id, kind, name, elem, length FROM types WHERE id = ?`, id).
		Scan(&t.ID, &t.Kind, &t.Name, &elem, &t.Length)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("data type %q: %w", id, program.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	t.Elem = program.TypeID(elem.String)

	switch t.Kind {
	case program.KindStruct:
		t.Members, err = db.members(id)
	case program.KindEnum:
		t.Values, err = db.enumValues(id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (db *DB) members(id program.TypeID) ([]program.Member, error) {
	rows, err := db.conn.Query(
		`SELECT name, member_type, byte_offset, comment FROM members WHERE type_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []program.Member
	for rows.Next() {
		var m program.Member
		var comment sql.NullString
		if err := rows.Scan(&m.Name, &m.Type, &m.Offset, &comment); err != nil {
			return nil, err
		}
		m.Comment = comment.String
		members = append(members, m)
	}
	return members, rows.Err()
}

func (db *DB) enumValues(id program.TypeID) ([]program.EnumValue, error) {
	rows, err := db.conn.Query(`SELECT name, value, comment FROM enum_values WHERE type_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []program.EnumValue
	for rows.Next() {
		var v program.EnumValue
		var comment sql.NullString
		if err := rows.Scan(&v.Name, &v.Value, &comment); err != nil {
			return nil, err
		}
		v.Comment = comment.String
		values = append(values, v)
	}
	return values, rows.Err()
}

// SignatureText returns the decompiled prototype of a function
func (db *DB) SignatureText(id program.FunctionID) (string, error) {
	sig, _, err := db.decompiled(id)
	return sig, err
}

// BodyText returns the decompiled body of a function
func (db *DB) BodyText(id program.FunctionID) (string, error) {
	_, body, err := db.decompiled(id)
	return body, err
}

func (db *DB) decompiled(id program.FunctionID) (signature, body string, err error) {
	var name string
	var sig, text, failure sql.NullString
	err = db.conn.QueryRow(`SELECT name, signature, body, error FROM functions WHERE entry = ?`, entry(id)).
		Scan(&name, &sig, &text, &failure)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("function %s: %w", id, program.ErrNotFound)
	}
	if err != nil {
		return "", "", err
	}
	if failure.String != "" {
		return "", "", &program.DecompileError{Function: id, Name: name, Reason: failure.String}
	}
	return sig.String, text.String, nil
}

func (db *DB) requireFunction(id program.FunctionID) error {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM functions WHERE entry = ?`, entry(id)).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("function %s: %w", id, program.ErrNotFound)
	}
	return nil
}

// FindFunctionsByPattern returns functions whose name contains pattern.
// Results are sorted by match quality: exact name > prefix > contains.
func (db *DB) FindFunctionsByPattern(pattern string) ([]*FunctionSummary, error) {
	rows, err := db.conn.Query(
		`SELECT entry, name, signature, error FROM functions
		 WHERE name LIKE ?
		 ORDER BY
			CASE
				WHEN name = ? THEN 0
				WHEN name LIKE ? || '%' THEN 1
				ELSE 2
			END,
			length(name) ASC, entry ASC`,
		"%"+pattern+"%", pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// GetDirectCallers returns functions that directly call the given function
func (db *DB) GetDirectCallers(id program.FunctionID) ([]*FunctionSummary, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT f.entry, f.name, f.signature, f.error
		 FROM functions f
		 JOIN calls c ON c.caller = f.entry
		 WHERE c.callee = ?
		 ORDER BY f.entry`,
		entry(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// GetDownstreamCallees returns every function reachable from id, with the
// shortest call depth at which it was reached. A maxDepth of 0 means no limit.
//
// The walk is a breadth-first search with a visited set, so each function is
// expanded at most once even when the call graph has cycles.
func (db *DB) GetDownstreamCallees(id program.FunctionID, maxDepth int) ([]*FunctionSummary, error) {
	stmt, err := db.conn.Prepare(`SELECT callee FROM calls WHERE caller = ? ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	depths := make(map[program.FunctionID]int)
	var order []program.FunctionID
	expanded := map[program.FunctionID]bool{id: true}

	frontier := []program.FunctionID{id}
	for depth := 1; len(frontier) > 0 && (maxDepth <= 0 || depth <= maxDepth); depth++ {
		var next []program.FunctionID
		for _, caller := range frontier {
			callees, err := queryCallees(stmt, caller)
			if err != nil {
				return nil, err
			}
			for _, callee := range callees {
				if _, seen := depths[callee]; seen {
					continue
				}
				depths[callee] = depth
				order = append(order, callee)
				// the root shows up at its cycle depth but is never walked twice
				if !expanded[callee] {
					expanded[callee] = true
					next = append(next, callee)
				}
			}
		}
		frontier = next
	}

	sort.Slice(order, func(i, j int) bool {
		if depths[order[i]] != depths[order[j]] {
			return depths[order[i]] < depths[order[j]]
		}
		return entry(order[i]) < entry(order[j])
	})

	fns := make([]*FunctionSummary, 0, len(order))
	for _, callee := range order {
		var signature, failure sql.NullString
		f := &FunctionSummary{ID: callee, Depth: depths[callee]}
		err := db.conn.QueryRow(`SELECT name, signature, error FROM functions WHERE entry = ?`, entry(callee)).
			Scan(&f.Name, &signature, &failure)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		f.Signature = signature.String
		f.Error = failure.String
		fns = append(fns, f)
	}
	return fns, nil
}

func queryCallees(stmt *sql.Stmt, caller program.FunctionID) ([]program.FunctionID, error) {
	rows, err := stmt.Query(entry(caller))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []program.FunctionID
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		ids = append(ids, address(v))
	}
	return ids, rows.Err()
}

// GetStats returns database statistics
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	err := db.conn.QueryRow(`SELECT COALESCE((SELECT value FROM meta WHERE key = 'program'), '')`).Scan(&s.Program)
	if err != nil {
		return nil, err
	}
	counts := []struct {
		dst   *int64
		query string
	}{
		{&s.Functions, `SELECT COUNT(*) FROM functions`},
		{&s.Calls, `SELECT COUNT(*) FROM calls`},
		{&s.Types, `SELECT COUNT(*) FROM types`},
		{&s.Structs, `SELECT COUNT(*) FROM types WHERE kind = 'struct'`},
		{&s.Enums, `SELECT COUNT(*) FROM types WHERE kind = 'enum'`},
		{&s.Failed, `SELECT COUNT(*) FROM functions WHERE error IS NOT NULL AND error != ''`},
	}
	for _, c := range counts {
		if err := db.conn.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// Helper functions

func scanSummaries(rows *sql.Rows) ([]*FunctionSummary, error) {
	var fns []*FunctionSummary
	for rows.Next() {
		var f FunctionSummary
		var v int64
		var signature, failure sql.NullString
		if err := rows.Scan(&v, &f.Name, &signature, &failure); err != nil {
			return nil, err
		}
		f.ID = address(v)
		f.Signature = signature.String
		f.Error = failure.String
		fns = append(fns, &f)
	}
	return fns, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
