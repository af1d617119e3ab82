package sqlinline

const QInsertRun = `--sql 9e4a1c27-63b5-4d0f-a8e2-1f7c3b5d6a90
insert into generation_runs (id, name, handle, request_json, outcome, started_at)
values ($1::text, $2::text, $3::text, $4::jsonb, $5::text, $6::timestamptz);
`

const QFinishRun = `--sql 5b7d2e41-0c8a-4f93-b6e1-2d4a9c7f8e13
update generation_runs
set handle = coalesce(nullif($2::text, ''), handle),
    outcome = $3::text,
    error_message = $4::text,
    artifact_path = $5::text,
    polls = $6::integer,
    finished_at = $7::timestamptz
where id = $1::text;
`

const QSelectRunByID = `--sql c1f08a3d-7e26-4b59-9d4c-8a2e6f1b3c75
select id, name, handle, request_json, outcome, error_message, artifact_path, polls, started_at, finished_at
from generation_runs
where id = $1::text;
`

const QSelectRecentRuns = `--sql 7a3e9b15-d2c4-4e86-b0f7-4c1d8e2a6b39
select id, name, handle, request_json, outcome, error_message, artifact_path, polls, started_at, finished_at
from generation_runs
order by started_at desc
limit $1::integer;
`
