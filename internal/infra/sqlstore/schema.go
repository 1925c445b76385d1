package sqlstore

type dialect struct {
	driver       string
	insertIgnore string
	schema       []string
}

var sqliteDialect = dialect{
	driver:       "sqlite",
	insertIgnore: "INSERT OR IGNORE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS apiaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			location TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS hives (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			apiary_id INTEGER NOT NULL REFERENCES apiaries(id),
			number INTEGER NOT NULL,
			UNIQUE (apiary_id, number)
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			kind TEXT NOT NULL,
			required INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0,
			seq INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			min_val INTEGER NOT NULL DEFAULT 0,
			max_val INTEGER NOT NULL DEFAULT 100,
			options TEXT NOT NULL DEFAULT '[]',
			depends_on TEXT NOT NULL DEFAULT '',
			show_when TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS inspections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL UNIQUE,
			apiary_id INTEGER NOT NULL,
			apiary_name TEXT NOT NULL DEFAULT '',
			hive_number INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			answers TEXT NOT NULL
		)`,
	},
}

var mysqlDialect = dialect{
	driver:       "mysql",
	insertIgnore: "INSERT IGNORE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS apiaries (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(128) NOT NULL UNIQUE,
			location VARCHAR(255) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS hives (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			apiary_id BIGINT NOT NULL,
			number INT NOT NULL,
			UNIQUE KEY uq_hive (apiary_id, number),
			FOREIGN KEY (apiary_id) REFERENCES apiaries(id)
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id VARCHAR(64) PRIMARY KEY,
			text TEXT NOT NULL,
			kind VARCHAR(16) NOT NULL,
			required TINYINT NOT NULL DEFAULT 0,
			position INT NOT NULL DEFAULT 0,
			seq INT NOT NULL DEFAULT 0,
			active TINYINT NOT NULL DEFAULT 1,
			min_val INT NOT NULL DEFAULT 0,
			max_val INT NOT NULL DEFAULT 100,
			options TEXT NOT NULL,
			depends_on VARCHAR(64) NOT NULL DEFAULT '',
			show_when TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inspections (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			record_id VARCHAR(36) NOT NULL UNIQUE,
			apiary_id BIGINT NOT NULL,
			apiary_name VARCHAR(128) NOT NULL DEFAULT '',
			hive_number INT NOT NULL,
			started_at VARCHAR(40) NOT NULL,
			completed_at VARCHAR(40) NOT NULL,
			answers TEXT NOT NULL
		)`,
	},
}
