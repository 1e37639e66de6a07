package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/areafiftylan/a5l/internal/model"
)

// CreateTeam creates a team and enrolls its captain as the first member.
// Callers should run it inside a transaction.
func CreateTeam(ctx context.Context, db DBTX, name string, captainID int64) (*model.Team, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO teams (name, captain_id) VALUES (?, ?)`, name, captainID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrTeamExists
		}
		return nil, fmt.Errorf("creating team: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting team id: %w", err)
	}

	if err := AddTeamMember(ctx, db, id, captainID); err != nil {
		return nil, err
	}

	return GetTeam(ctx, db, id)
}

const teamSelect = `SELECT t.id, t.name, t.captain_id, t.created_at, u.username
 FROM teams t
 JOIN users u ON u.id = t.captain_id`

// GetTeam returns a team with its member usernames, or nil if there is none.
func GetTeam(ctx context.Context, db DBTX, id int64) (*model.Team, error) {
	team := &model.Team{}
	err := db.QueryRowContext(ctx, teamSelect+` WHERE t.id = ?`, id).
		Scan(&team.ID, &team.Name, &team.CaptainID, &team.CreatedAt, &team.CaptainUsername)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}

	team.Members, err = listTeamMembers(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return team, nil
}

// ListTeams returns all teams without their members.
func ListTeams(ctx context.Context, db DBTX) ([]model.Team, error) {
	rows, err := db.QueryContext(ctx, teamSelect+` ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	return scanTeams(rows)
}

// ListTeamsByMember returns the teams a user belongs to.
func ListTeamsByMember(ctx context.Context, db DBTX, userID int64) ([]model.Team, error) {
	rows, err := db.QueryContext(ctx,
		teamSelect+` JOIN team_members m ON m.team_id = t.id WHERE m.user_id = ? ORDER BY t.name`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing teams by member: %w", err)
	}
	defer rows.Close()

	return scanTeams(rows)
}

// AddTeamMember adds a user to a team.
func AddTeamMember(ctx context.Context, db DBTX, teamID, userID int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id) VALUES (?, ?)`, teamID, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyMember
		}
		return fmt.Errorf("adding team member: %w", err)
	}
	return nil
}

// RemoveTeamMember removes a user from a team.
func RemoveTeamMember(ctx context.Context, db DBTX, teamID, userID int64) error {
	return execOne(ctx, db, model.ErrNotMember,
		`DELETE FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID)
}

// IsTeamMember reports whether a user belongs to a team.
func IsTeamMember(ctx context.Context, db DBTX, teamID, userID int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking team membership: %w", err)
	}
	return count > 0, nil
}

func listTeamMembers(ctx context.Context, db DBTX, teamID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT u.username FROM team_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.team_id = ?
		 ORDER BY u.username`, teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing team members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("scanning team member: %w", err)
		}
		members = append(members, username)
	}
	return members, rows.Err()
}

func scanTeams(rows *sql.Rows) ([]model.Team, error) {
	var teams []model.Team
	for rows.Next() {
		var team model.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.CaptainID, &team.CreatedAt, &team.CaptainUsername); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}
