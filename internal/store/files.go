package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const fileCols = "id, path, language, hash, byte_size, node_count, has_error, last_indexed"

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, byte_size, node_count, has_error, last_indexed) VALUES (?, ?, ?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.ByteSize, f.NodeCount, f.HasError, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	err := scanner.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.ByteSize, &f.NodeCount, &f.HasError, &f.LastIndexed)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// FileByPath returns the file stored under path, or nil if there is none.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	files, err := s.queryFiles("SELECT "+fileCols+" FROM files WHERE language = ? ORDER BY path", language)
	if err != nil {
		return nil, fmt.Errorf("files by language: %w", err)
	}
	return files, nil
}

// FilesWithErrors returns the files whose tree contains syntax errors.
func (s *Store) FilesWithErrors() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files WHERE has_error ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files with errors: %w", err)
	}
	return files, nil
}

// UpdateFileStats records the summary of a file's committed tree.
func (s *Store) UpdateFileStats(fileID int64, nodeCount int, hasError bool) error {
	_, err := s.db.Exec("UPDATE files SET node_count = ?, has_error = ? WHERE id = ?", nodeCount, hasError, fileID)
	if err != nil {
		return fmt.Errorf("update file stats: %w", err)
	}
	return nil
}

// DeleteFile removes the file stored under path, if any, together with its nodes.
func (s *Store) DeleteFile(path string) error {
	f, err := s.FileByPath(path)
	if err != nil {
		return err
	}
	if f == nil {
		return nil
	}
	return s.DeleteFileData(f.ID)
}
