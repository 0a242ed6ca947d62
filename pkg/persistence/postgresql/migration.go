package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Directory
			CREATE TABLE departments (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL
			);

			CREATE TABLE roles (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL
			);

			CREATE TABLE users (
				id VARCHAR(255) PRIMARY KEY,
				display_name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				department_id VARCHAR(255) NOT NULL DEFAULT '',
				role_ids JSONB NOT NULL DEFAULT '[]'
			);

			CREATE INDEX idx_users_department_id ON users(department_id);
		`,
		2: `
			-- Definitions are stored as whole documents
			CREATE TABLE processes (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				version INTEGER NOT NULL,
				document JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE forms (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				version INTEGER NOT NULL,
				document JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
		3: `
			CREATE TABLE tasks (
				id VARCHAR(255) PRIMARY KEY,
				form_id VARCHAR(255) NOT NULL,
				process_id VARCHAR(255) NOT NULL,
				requester_user_id VARCHAR(255) NOT NULL,
				current_stage_key VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('DRAFT', 'IN_PROGRESS', 'COMPLETED', 'REJECTED')),
				version BIGINT NOT NULL,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_tasks_requester_user_id ON tasks(requester_user_id);
			CREATE INDEX idx_tasks_status ON tasks(status);
			CREATE INDEX idx_tasks_created_at ON tasks(created_at);
		`,
	}
}
