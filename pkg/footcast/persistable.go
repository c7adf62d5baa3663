package footcast

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/richard-senior/footcast/internal/logger"
	_ "modernc.org/sqlite"
)

// Persistable interface defines methods that persistent objects must implement
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() map[string]interface{}
	SetPrimaryKey(map[string]interface{}) error
	BeforeSave() error
	AfterSave() error
	BeforeDelete() error
	AfterDelete() error
}

// ErrRecordNotFound is returned by FindByPrimaryKey when no row matches
var ErrRecordNotFound = errors.New("record not found")

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists Persistable objects in a sqlite database using their struct tags
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (creating if needed) the sqlite database at path and creates
// the tables for every record type footcast persists.
// Use ":memory:" for a throwaway database.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serialises writers and :memory: is per connection
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Database initialized successfully", path)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// createTables creates all necessary database tables
func (s *Store) createTables(ctx context.Context) error {
	for _, obj := range []Persistable{&Match{}, &RunScore{}, &Prediction{}} {
		if err := s.CreateTable(ctx, obj); err != nil {
			return fmt.Errorf("failed to create %s table: %w", obj.GetTableName(), err)
		}
	}
	return nil
}

// CreateTable creates a table for the given persistable object using struct tags
func (s *Store) CreateTable(ctx context.Context, obj Persistable) error {
	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)

	logger.Debug("Creating table with SQL", createSQL)

	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	for _, query := range generateIndexSQL(obj, tableName) {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

// generateCreateTableSQL generates CREATE TABLE SQL from struct tags
func generateCreateTableSQL(obj interface{}, tableName string) string {
	var columns []string
	var primaryKeys []string

	eachColumn(obj, func(field reflect.StructField, _ reflect.Value, columnName string) {
		dbType := field.Tag.Get("dbtype")
		if field.Tag.Get("primary") == "true" {
			primaryKeys = append(primaryKeys, columnName)
			dbType = strings.TrimSpace(strings.ReplaceAll(dbType, "PRIMARY KEY", ""))
		}
		columns = append(columns, fmt.Sprintf("%s %s", columnName, dbType))
	})

	if len(primaryKeys) > 0 {
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(columns, ", "))
}

// generateIndexSQL generates index creation SQL from struct tags
func generateIndexSQL(obj interface{}, tableName string) []string {
	var indexSQL []string
	eachColumn(obj, func(field reflect.StructField, _ reflect.Value, columnName string) {
		if field.Tag.Get("index") == "" {
			return
		}
		indexName := fmt.Sprintf("idx_%s_%s", tableName, columnName)
		indexSQL = append(indexSQL, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, tableName, columnName))
	})
	return indexSQL
}

// eachColumn visits every exported, persistable field that declares a dbtype
func eachColumn(obj interface{}, fn func(field reflect.StructField, value reflect.Value, columnName string)) {
	objValue := reflect.ValueOf(obj)
	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objValue = objValue.Elem()
		objType = objType.Elem()
	}

	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Tag.Get("persist") == "false" || field.Tag.Get("db") == "-" {
			continue
		}
		if field.Tag.Get("dbtype") == "" {
			continue
		}
		columnName := field.Tag.Get("column")
		if columnName == "" {
			columnName = strings.ToLower(field.Name)
		}
		var fieldValue reflect.Value
		if objValue.IsValid() {
			fieldValue = objValue.Field(i)
		}
		fn(field, fieldValue, columnName)
	}
}

/////////////////////////////////////////////////////////////////////////
////// Writes
/////////////////////////////////////////////////////////////////////////

// Save persists the object to the database (INSERT or UPDATE)
func (s *Store) Save(ctx context.Context, obj Persistable) error {
	return save(ctx, s.db, obj)
}

// BulkSave saves multiple objects in a single transaction
func (s *Store) BulkSave(ctx context.Context, objects []Persistable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, obj := range objects {
		if err := save(ctx, tx, obj); err != nil {
			return fmt.Errorf("failed to save object: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	logger.Debug("Bulk saved", len(objects), "records")
	return nil
}

func save(ctx context.Context, q querier, obj Persistable) error {
	if err := obj.BeforeSave(); err != nil {
		return fmt.Errorf("before save hook failed: %w", err)
	}

	exists, err := exists(ctx, q, obj)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if exists {
		err = update(ctx, q, obj)
	} else {
		err = insert(ctx, q, obj)
	}
	if err != nil {
		return err
	}

	if err := obj.AfterSave(); err != nil {
		return fmt.Errorf("after save hook failed: %w", err)
	}
	return nil
}

// insert adds a new record to the database
func insert(ctx context.Context, q querier, obj Persistable) error {
	tableName := obj.GetTableName()
	var columns, placeholders []string
	var values []interface{}
	eachColumn(obj, func(_ reflect.StructField, v reflect.Value, columnName string) {
		columns = append(columns, columnName)
		placeholders = append(placeholders, "?")
		values = append(values, v.Interface())
	})

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := q.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", tableName, err)
	}
	return nil
}

// update modifies an existing record in the database
func update(ctx context.Context, q querier, obj Persistable) error {
	tableName := obj.GetTableName()
	var setPairs []string
	var values []interface{}
	eachColumn(obj, func(field reflect.StructField, v reflect.Value, columnName string) {
		if field.Tag.Get("primary") == "true" {
			return
		}
		setPairs = append(setPairs, fmt.Sprintf("%s = ?", columnName))
		values = append(values, v.Interface())
	})

	whereClause, whereValues := buildWhereClause(obj.GetPrimaryKey())
	values = append(values, whereValues...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", tableName, strings.Join(setPairs, ", "), whereClause)
	if _, err := q.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to update %s: %w", tableName, err)
	}
	return nil
}

func exists(ctx context.Context, q querier, obj Persistable) (bool, error) {
	tableName := obj.GetTableName()
	whereClause, values := buildWhereClause(obj.GetPrimaryKey())

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, whereClause)
	if err := q.QueryRowContext(ctx, query, values...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}
	return count > 0, nil
}

// Exists checks if the object exists in the database
func (s *Store) Exists(ctx context.Context, obj Persistable) (bool, error) {
	return exists(ctx, s.db, obj)
}

// Delete removes the object from the database
func (s *Store) Delete(ctx context.Context, obj Persistable) error {
	if err := obj.BeforeDelete(); err != nil {
		return fmt.Errorf("before delete hook failed: %w", err)
	}

	tableName := obj.GetTableName()
	whereClause, values := buildWhereClause(obj.GetPrimaryKey())
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", tableName, whereClause)
	if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", tableName, err)
	}

	if err := obj.AfterDelete(); err != nil {
		return fmt.Errorf("after delete hook failed: %w", err)
	}
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// Reads
/////////////////////////////////////////////////////////////////////////

// FindByPrimaryKey loads the row identified by primaryKey into obj
func (s *Store) FindByPrimaryKey(ctx context.Context, obj Persistable, primaryKey map[string]interface{}) error {
	tableName := obj.GetTableName()
	columns, destinations := getSelectData(obj)
	whereClause, values := buildWhereClause(primaryKey)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(columns, ", "), tableName, whereClause)
	err := s.db.QueryRowContext(ctx, query, values...).Scan(destinations...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w in %s", ErrRecordNotFound, tableName)
	}
	if err != nil {
		return fmt.Errorf("failed to scan row from %s: %w", tableName, err)
	}
	return nil
}

// FindAll retrieves all records of the given type
func (s *Store) FindAll(ctx context.Context, obj Persistable) ([]interface{}, error) {
	return s.FindWhere(ctx, obj, "1 = 1")
}

// FindWhere executes a custom WHERE query, returning new instances of obj's type
func (s *Store) FindWhere(ctx context.Context, obj Persistable, whereClause string, args ...interface{}) ([]interface{}, error) {
	tableName := obj.GetTableName()
	columns, _ := getSelectData(obj)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(columns, ", "), tableName, whereClause)
	logger.Debug("FindWhere SQL", query)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}

	var results []interface{}
	for rows.Next() {
		newObj := reflect.New(objType).Interface()
		_, destinations := getSelectData(newObj)
		if err := rows.Scan(destinations...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		results = append(results, newObj)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

// getSelectData extracts column names and scan destinations for SELECT
func getSelectData(obj interface{}) ([]string, []interface{}) {
	var columns []string
	var destinations []interface{}
	eachColumn(obj, func(_ reflect.StructField, v reflect.Value, columnName string) {
		columns = append(columns, columnName)
		destinations = append(destinations, v.Addr().Interface())
	})
	return columns, destinations
}

// buildWhereClause builds a WHERE clause from a primary key map.
// Columns are sorted so the generated SQL is stable.
func buildWhereClause(primaryKey map[string]interface{}) (string, []interface{}) {
	columns := make([]string, 0, len(primaryKey))
	for column := range primaryKey {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	conditions := make([]string, 0, len(columns))
	values := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		conditions = append(conditions, fmt.Sprintf("%s = ?", column))
		values = append(values, primaryKey[column])
	}
	return strings.Join(conditions, " AND "), values
}

/////////////////////////////////////////////////////////////////////////
////// Typed helpers
/////////////////////////////////////////////////////////////////////////

// SaveMatches persists matches in one transaction
func (s *Store) SaveMatches(ctx context.Context, matches []*Match) error {
	objects := make([]Persistable, len(matches))
	for i, m := range matches {
		objects[i] = m
	}
	return s.BulkSave(ctx, objects)
}

// LoadMatches returns every stored match ordered by date
func (s *Store) LoadMatches(ctx context.Context) ([]*Match, error) {
	results, err := s.FindWhere(ctx, &Match{}, "1 = 1 ORDER BY date, id")
	if err != nil {
		return nil, err
	}
	matches := make([]*Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, r.(*Match))
	}
	return matches, nil
}
