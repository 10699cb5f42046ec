package gradestore

var schema = []string{
	`create table if not exists snapshot (
		id integer primary key autoincrement,
		time integer not null
	)`,
	`create table if not exists snapshot_course (
		snapshot_id integer not null references snapshot(id) on delete cascade,
		idx integer not null,
		semester text not null,
		course_id text not null,
		course_name text not null,
		credits text not null,
		grade text not null,
		primary key (snapshot_id, idx)
	)`,
	`create index if not exists snapshot_time on snapshot(time)`,
}
