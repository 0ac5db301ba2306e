package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"agentmemory/internal/model"
	"agentmemory/internal/scope"
	"agentmemory/pkg/apperr"
)

// CreateEntity inserts a new graph node, generating an opaque id.
func (s *Store) CreateEntity(key scope.Key, name, typ string, properties map[string]any) (*model.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if properties == nil {
		properties = map[string]any{}
	}
	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return nil, apperr.NewValidation("invalid_properties", "entity properties are not serializable")
	}
	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO entities (id, user, agent, name, type, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, key.User, key.Agent, name, typ, string(propsJSON), now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to create entity", err)
	}
	return s.getEntityNoLock(key, id)
}

// GetEntity returns an entity by id, or nil if absent in scope.
func (s *Store) GetEntity(key scope.Key, id string) (*model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEntityNoLock(key, id)
}

func (s *Store) getEntityNoLock(key scope.Key, id string) (*model.Entity, error) {
	row := s.db.QueryRow(`
		SELECT id, user, agent, name, type, properties, created_at, updated_at
		FROM entities WHERE user=? AND agent=? AND id=?`, key.User, key.Agent, id)
	ent, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to read entity", err)
	}
	return ent, nil
}

// ListEntities returns entities in scope matching an optional type and/or
// name substring filter.
func (s *Store) ListEntities(key scope.Key, filter model.EntityFilter) ([]*model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := `SELECT id, user, agent, name, type, properties, created_at, updated_at FROM entities WHERE user=? AND agent=?`
	args := []any{key.User, key.Agent}
	if filter.Type != "" {
		query += ` AND type=?`
		args = append(args, filter.Type)
	}
	if filter.NameContains != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.NameContains+"%")
	}
	query += ` ORDER BY name ASC`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to list entities", err)
	}
	defer rows.Close()
	var out []*model.Entity
	for rows.Next() {
		ent, err := scanEntity(rows)
		if err != nil {
			return nil, apperr.NewStorageUnavailable("failed to scan entity", err)
		}
		out = append(out, ent)
	}
	return out, rows.Err()
}

// UpdateEntity replaces name/type/properties for an existing entity.
func (s *Store) UpdateEntity(key scope.Key, id, name, typ string, properties map[string]any) (*model.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return nil, apperr.NewValidation("invalid_properties", "entity properties are not serializable")
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE entities SET name=?, type=?, properties=?, updated_at=?
		WHERE user=? AND agent=? AND id=?`,
		name, typ, string(propsJSON), now.Format(time.RFC3339Nano), key.User, key.Agent, id)
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to update entity", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.getEntityNoLock(key, id)
}

// DeleteEntity removes an entity and every relationship incident on it,
// returning true iff the entity row was removed.
func (s *Store) DeleteEntity(key scope.Key, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM relationships WHERE user=? AND agent=? AND (source_id=? OR target_id=?)`,
		key.User, key.Agent, id, id); err != nil {
		return false, apperr.NewStorageUnavailable("failed to cascade delete relationships", err)
	}
	res, err := s.db.Exec(`DELETE FROM entities WHERE user=? AND agent=? AND id=?`, key.User, key.Agent, id)
	if err != nil {
		return false, apperr.NewStorageUnavailable("failed to delete entity", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.NewStorageUnavailable("failed to delete entity", err)
	}
	return n > 0, nil
}

// CreateRelationship upserts an edge on the unique (source,target,type)
// triple: a second call with the same triple updates weight/properties.
func (s *Store) CreateRelationship(key scope.Key, sourceID, targetID, relationType string, weight float64, properties map[string]any) (*model.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, err := s.getEntityNoLock(key, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, apperr.NewNotFound("source_entity_not_found", "source entity does not exist in this scope")
	}
	target, err := s.getEntityNoLock(key, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.NewNotFound("target_entity_not_found", "target entity does not exist in this scope")
	}

	if properties == nil {
		properties = map[string]any{}
	}
	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return nil, apperr.NewValidation("invalid_properties", "relationship properties are not serializable")
	}
	if weight == 0 {
		weight = 1.0
	}
	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO relationships (id, user, agent, source_id, target_id, relation_type, weight, properties, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user, agent, source_id, target_id, relation_type) DO UPDATE SET
			weight = excluded.weight,
			properties = excluded.properties
	`, id, key.User, key.Agent, sourceID, targetID, relationType, weight, string(propsJSON), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to create relationship", err)
	}
	row := s.db.QueryRow(`
		SELECT id, user, agent, source_id, target_id, relation_type, weight, properties, created_at
		FROM relationships WHERE user=? AND agent=? AND source_id=? AND target_id=? AND relation_type=?`,
		key.User, key.Agent, sourceID, targetID, relationType)
	return scanRelationship(row)
}

// GetRelationship returns a single edge by id, or nil if absent.
func (s *Store) GetRelationship(key scope.Key, id string) (*model.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`
		SELECT id, user, agent, source_id, target_id, relation_type, weight, properties, created_at
		FROM relationships WHERE user=? AND agent=? AND id=?`, key.User, key.Agent, id)
	rel, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to read relationship", err)
	}
	return rel, nil
}

// GetRelationships returns edges incident on entityID in the requested
// direction, ordered by weight descending.
func (s *Store) GetRelationships(key scope.Key, entityID string, direction model.RelationDirection) ([]*model.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRelationshipsNoLock(key, entityID, direction)
}

func (s *Store) getRelationshipsNoLock(key scope.Key, entityID string, direction model.RelationDirection) ([]*model.Relationship, error) {
	var query string
	args := []any{key.User, key.Agent}
	switch direction {
	case model.DirectionOutgoing:
		query = `SELECT id, user, agent, source_id, target_id, relation_type, weight, properties, created_at
			FROM relationships WHERE user=? AND agent=? AND source_id=?`
		args = append(args, entityID)
	case model.DirectionIncoming:
		query = `SELECT id, user, agent, source_id, target_id, relation_type, weight, properties, created_at
			FROM relationships WHERE user=? AND agent=? AND target_id=?`
		args = append(args, entityID)
	default:
		query = `SELECT id, user, agent, source_id, target_id, relation_type, weight, properties, created_at
			FROM relationships WHERE user=? AND agent=? AND (source_id=? OR target_id=?)`
		args = append(args, entityID, entityID)
	}
	query += ` ORDER BY weight DESC`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to list relationships", err)
	}
	defer rows.Close()
	var out []*model.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, apperr.NewStorageUnavailable("failed to scan relationship", err)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// DeleteRelationship removes an edge by id, returning true if a row was removed.
func (s *Store) DeleteRelationship(key scope.Key, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM relationships WHERE user=? AND agent=? AND id=?`, key.User, key.Agent, id)
	if err != nil {
		return false, apperr.NewStorageUnavailable("failed to delete relationship", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.NewStorageUnavailable("failed to delete relationship", err)
	}
	return n > 0, nil
}

// TraverseGraph performs a bounded breadth-first walk from start, returning
// every entity and relationship visited within maxDepth hops.
func (s *Store) TraverseGraph(key scope.Key, start string, maxDepth int) ([]*model.Entity, []*model.Relationship, error) {
	startEntity, err := s.GetEntity(key, start)
	if err != nil {
		return nil, nil, err
	}
	if startEntity == nil {
		return []*model.Entity{}, []*model.Relationship{}, nil
	}

	visitedEntities := map[string]*model.Entity{start: startEntity}
	visitedEdges := map[string]*model.Relationship{}
	entityOrder := []*model.Entity{startEntity}
	var edgeOrder []*model.Relationship

	frontier := []string{start}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			edges, err := s.GetRelationships(key, id, model.DirectionBoth)
			if err != nil {
				return nil, nil, err
			}
			for _, edge := range edges {
				if _, seen := visitedEdges[edge.ID]; !seen {
					visitedEdges[edge.ID] = edge
					edgeOrder = append(edgeOrder, edge)
				}
				other := edge.TargetID
				if other == id {
					other = edge.SourceID
				}
				if _, seen := visitedEntities[other]; seen {
					continue
				}
				ent, err := s.GetEntity(key, other)
				if err != nil {
					return nil, nil, err
				}
				if ent == nil {
					continue
				}
				visitedEntities[other] = ent
				entityOrder = append(entityOrder, ent)
				next = append(next, other)
			}
		}
		frontier = next
	}

	return entityOrder, edgeOrder, nil
}

func scanEntity(row scannable) (*model.Entity, error) {
	var ent model.Entity
	var propsJSON, createdAt, updatedAt string
	if err := row.Scan(&ent.ID, &ent.User, &ent.Agent, &ent.Name, &ent.Type, &propsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(propsJSON), &ent.Properties); err != nil {
		return nil, err
	}
	ent.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	ent.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &ent, nil
}

func scanRelationship(row scannable) (*model.Relationship, error) {
	var rel model.Relationship
	var propsJSON, createdAt string
	if err := row.Scan(&rel.ID, &rel.User, &rel.Agent, &rel.SourceID, &rel.TargetID, &rel.RelationType,
		&rel.Weight, &propsJSON, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(propsJSON), &rel.Properties); err != nil {
		return nil, err
	}
	rel.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &rel, nil
}
