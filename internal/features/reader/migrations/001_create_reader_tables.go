package migrations

import (
	"feedreader/internal/core"
)

// Migration001CreateReaderTables creates the feed and article tables
var Migration001CreateReaderTables = core.Migration{
	Feature:     FeatureName,
	Version:     1,
	Name:        "create_reader_tables",
	Description: "Create feeds, articles and their tag tables",
	UpSQL: `
		-- Subscribed feeds
		CREATE TABLE IF NOT EXISTS feeds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			site_url TEXT NOT NULL DEFAULT '',
			last_fetched_at INTEGER,
			last_fetch_status TEXT NOT NULL DEFAULT '',
			last_fetch_error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS feed_tags (
			feed_id INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
			tag TEXT NOT NULL,
			PRIMARY KEY (feed_id, tag)
		);

		-- Articles keep a weak reference to their feed so they can outlive it
		CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			feed_id INTEGER NOT NULL,
			guid TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			identity_key TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			published_at INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			read_at INTEGER,
			state TEXT NOT NULL DEFAULT 'unread' CHECK (state IN ('unread', 'read')),
			starred INTEGER NOT NULL DEFAULT 0,
			UNIQUE (feed_id, identity_key)
		);

		CREATE TABLE IF NOT EXISTS article_tags (
			article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			tag TEXT NOT NULL,
			PRIMARY KEY (article_id, tag)
		);

		CREATE INDEX IF NOT EXISTS idx_articles_state_published ON articles(state, published_at DESC, id DESC);
		CREATE INDEX IF NOT EXISTS idx_articles_starred_published ON articles(starred, published_at DESC, id DESC);
		CREATE INDEX IF NOT EXISTS idx_articles_state_fetched ON articles(state, fetched_at);
		CREATE INDEX IF NOT EXISTS idx_article_tags_tag ON article_tags(tag);
		CREATE INDEX IF NOT EXISTS idx_feed_tags_tag ON feed_tags(tag);
	`,
	DownSQL: `
		DROP INDEX IF EXISTS idx_feed_tags_tag;
		DROP INDEX IF EXISTS idx_article_tags_tag;
		DROP INDEX IF EXISTS idx_articles_state_fetched;
		DROP INDEX IF EXISTS idx_articles_starred_published;
		DROP INDEX IF EXISTS idx_articles_state_published;
		DROP TABLE IF EXISTS article_tags;
		DROP TABLE IF EXISTS articles;
		DROP TABLE IF EXISTS feed_tags;
		DROP TABLE IF EXISTS feeds;
	`,
}
