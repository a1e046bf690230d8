package template

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Registry 把模板上传记录镜像到 SQLite，方便外部工具按 SQL 查询。
// 权威数据仍是 metadata/ 下的 JSON 文件。
type Registry struct {
	db *sql.DB
}

const registrySchema = `
CREATE TABLE IF NOT EXISTS templates (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	format      TEXT NOT NULL,
	version     INTEGER NOT NULL,
	file_path   TEXT NOT NULL,
	change_log  TEXT,
	created_at  TEXT NOT NULL DEFAULT (datetime('now', 'localtime')),
	UNIQUE(name, format, version)
);`

// OpenRegistry 打开（必要时初始化）注册表数据库。
func OpenRegistry(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开注册表失败: %w", err)
	}
	if _, err := db.Exec(registrySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化注册表失败: %w", err)
	}
	return &Registry{db: db}, nil
}

// Record 登记一次上传。
func (r *Registry) Record(name, format string, version int, filePath, changeLog string) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO templates (name, format, version, file_path, change_log) VALUES (?, ?, ?, ?, ?)`,
		name, format, version, filePath, changeLog,
	)
	return err
}

// Versions 返回某模板在某格式下的全部版本号，升序。
func (r *Registry) Versions(name, format string) ([]int, error) {
	rows, err := r.db.Query(
		`SELECT version FROM templates WHERE name = ? AND format = ? ORDER BY version`,
		name, format,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Close 关闭数据库连接。
func (r *Registry) Close() error { return r.db.Close() }
