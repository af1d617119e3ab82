package sqlinline

const QSelectServiceKey = `--sql 5e1f7a2c-4b93-4d08-a6c1-2f9e8b7d3a51
select api_key
from service_keys
where endpoint = $1::text;
`

// QSaveServiceKey keeps the first saved_at and bumps rotated_at on every
// overwrite.
const QSaveServiceKey = `--sql c7d24e90-1a6b-4f35-9e08-b3a5d6f1c274
insert into service_keys (endpoint, api_key, note, saved_at, rotated_at)
values ($1::text, $2::text, $3::text, now(), null)
on conflict (endpoint) do update set
    api_key = excluded.api_key,
    note = excluded.note,
    rotated_at = now();
`

const QDeleteServiceKey = `--sql 9a0b3f6d-82c4-4e17-b5d9-6c1e0a7f4b28
delete from service_keys
where endpoint = $1::text;
`
