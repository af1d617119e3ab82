package sqlinline

const QEnsureSchema = `--sql 3c2b7d0e-9a41-4f6e-8d17-5e0c1f4a9b62
create table if not exists generation_runs (
    id text primary key,
    name text not null default '',
    handle text not null default '',
    request_json jsonb not null default '{}'::jsonb,
    outcome text not null default 'pending',
    error_message text not null default '',
    artifact_path text not null default '',
    polls integer not null default 0,
    started_at timestamptz not null default now(),
    finished_at timestamptz
);
create index if not exists generation_runs_started_at_idx on generation_runs (started_at desc);
create table if not exists service_keys (
    endpoint text primary key,
    api_key text not null,
    note text not null default '',
    saved_at timestamptz not null default now(),
    rotated_at timestamptz
);
`
