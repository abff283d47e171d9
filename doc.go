/*
Package airtable is a client for the Airtable REST API.

A Client is created from a Config (see core.Config). Bases are addressed by id
and tables by name:

	client, err := airtable.New(&airtable.Config{ApiKey: token})
	table := client.Base("appXXXXXXXXXXXXXX").Table("Tasks")

	query, err := table.Select(airtable.Params{"view": "Grid view", "pageSize": 50})
	records, err := query.All(ctx)

Every call goes through the core request executor: responses with status 429
are retried with exponential backoff and full jitter unless
Config.NoRetryIfRateLimited is set, and failures are returned as *core.Error
values carrying a stable Kind.

Queries are paginated lazily. Query.EachPage hands out one page at a time
together with a continuation that the caller invokes when it is ready for the
next page. Query.Pages exposes the same traversal as a pull iterator.

Calls ending in WithCallback are the legacy completion-callback surface. They
run the same single call on a goroutine and report the outcome to a function.
*/
package airtable
