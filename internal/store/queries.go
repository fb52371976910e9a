// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

// Cypher statements for the Neo4j sink. Node upserts MERGE on the key
// property alone and SET the rest, so reloading after a property change
// updates the node instead of duplicating it. Relationship statements MATCH
// both endpoints; rows whose endpoints are missing produce no relationship.
const (
	upsertAuthorsQuery = `
		UNWIND $rows AS row
		MERGE (a:Author {author_id: row.author_id})
		SET a.full_name = row.full_name,
			a.h_index = row.h_index,
			a.research_sector = row.research_sector,
			a.affiliation = row.affiliation,
			a.influence_score = row.influence_score
		RETURN count(a) AS total
	`

	upsertTopicsQuery = `
		UNWIND $rows AS row
		MERGE (t:Topic {topic_id: row.topic_id})
		SET t.name = row.name
		RETURN count(t) AS total
	`

	upsertTopicParentsQuery = `
		UNWIND $rows AS row
		MATCH (child:Topic {topic_id: row.topic_id})
		MATCH (parent:Topic {topic_id: row.parent_id})
		MERGE (child)-[:PARENT_TOPIC]->(parent)
		RETURN count(*) AS total
	`

	upsertPublicationsQuery = `
		UNWIND $rows AS row
		MERGE (p:Publication {publication_id: row.publication_id})
		SET p.title = row.title,
			p.publication_year = row.publication_year,
			p.doi = row.doi,
			p.status = row.status
		RETURN count(p) AS total
	`

	upsertAuthorshipsQuery = `
		UNWIND $rows AS row
		MATCH (a:Author {author_id: row.author_id})
		MATCH (p:Publication {publication_id: row.publication_id})
		MERGE (a)-[:WRITES]->(p)
		RETURN count(*) AS total
	`

	upsertTopicLinksQuery = `
		UNWIND $rows AS row
		MATCH (p:Publication {publication_id: row.publication_id})
		MATCH (t:Topic {topic_id: row.topic_id})
		MERGE (p)-[:IS_ABOUT]->(t)
		RETURN count(*) AS total
	`

	upsertCitationsQuery = `
		UNWIND $rows AS row
		MATCH (citing:Publication {publication_id: row.citing_id})
		MATCH (cited:Publication {publication_id: row.cited_id})
		MERGE (citing)-[:CITES]->(cited)
		RETURN count(*) AS total
	`
)
