package apply

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

type alterTableCmdEffect struct {
	blocking          bool
	destructive       bool
	destructiveReason string
	blockingReason    string
}

var alterTableCmdEffects = map[pg_query.AlterTableType]alterTableCmdEffect{
	pg_query.AlterTableType_AT_AddColumn: {
		blocking:       true,
		blockingReason: "ADD COLUMN takes an ACCESS EXCLUSIVE lock; it is brief when the column has no default",
	},
	pg_query.AlterTableType_AT_DropColumn: {
		blocking:          true,
		destructive:       true,
		destructiveReason: "DROP COLUMN will permanently delete the column and its data",
		blockingReason:    "DROP COLUMN takes an ACCESS EXCLUSIVE lock",
	},
	pg_query.AlterTableType_AT_AlterColumnType: {
		blocking:       true,
		blockingReason: "ALTER COLUMN TYPE may rewrite the whole table under an ACCESS EXCLUSIVE lock",
	},
	pg_query.AlterTableType_AT_SetNotNull: {
		blocking:       true,
		blockingReason: "SET NOT NULL scans the whole table to validate existing rows",
	},
	pg_query.AlterTableType_AT_AddConstraint: {
		blocking:       true,
		blockingReason: "ADD CONSTRAINT may lock the table while validating existing data",
	},
	pg_query.AlterTableType_AT_DropConstraint: {
		blocking:       true,
		blockingReason: "DROP CONSTRAINT takes an ACCESS EXCLUSIVE lock",
	},
}

// StatementAnalysis contains the results of analyzing a SQL statement.
type StatementAnalysis struct {
	IsBlocking        bool
	BlockingReasons   []string
	IsDestructive     bool
	DestructiveReason string
	IsTransactionSafe bool
	TxUnsafeReason    string
	StatementType     string
}

// StatementAnalyzer classifies statements with the PostgreSQL grammar.
type StatementAnalyzer struct{}

// NewStatementAnalyzer creates a new AST-based statement analyzer.
func NewStatementAnalyzer() *StatementAnalyzer {
	return &StatementAnalyzer{}
}

// AnalyzeStatement parses a single SQL statement and returns analysis results.
func (a *StatementAnalyzer) AnalyzeStatement(sql string) *StatementAnalysis {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return &StatementAnalysis{
			StatementType:     "UNPARSEABLE",
			IsTransactionSafe: true,
		}
	}

	if len(result.Stmts) == 0 || result.Stmts[0].Stmt == nil {
		return &StatementAnalysis{}
	}

	return a.analyzeNode(result.Stmts[0].Stmt)
}

// AnalyzeStatements analyzes multiple SQL statements and returns a PreflightResult.
func (a *StatementAnalyzer) AnalyzeStatements(statements []string, unsafeAllowed bool) *PreflightResult {
	result := &PreflightResult{
		IsTransactional: true,
	}

	for _, stmt := range statements {
		analysis := a.AnalyzeStatement(stmt)
		if analysis == nil {
			continue
		}

		if analysis.StatementType == "UNPARSEABLE" {
			result.Errors = append(result.Errors, fmt.Sprintf("statement does not parse: %s", truncateSQL(stmt)))
		}
		a.addBlockingWarnings(result, analysis, stmt)
		a.addDestructiveWarning(result, analysis, stmt, unsafeAllowed)
		a.addTransactionSafety(result, analysis, stmt)
	}

	return result
}

func (a *StatementAnalyzer) addBlockingWarnings(result *PreflightResult, analysis *StatementAnalysis, stmt string) {
	if !analysis.IsBlocking {
		return
	}
	for _, reason := range analysis.BlockingReasons {
		result.Warnings = append(result.Warnings, Warning{
			Level:   WarnCaution,
			Message: fmt.Sprintf("Potentially blocking statement: %s", reason),
			SQL:     truncateSQL(stmt),
		})
	}
}

func (a *StatementAnalyzer) addDestructiveWarning(result *PreflightResult, analysis *StatementAnalysis, stmt string, unsafeAllowed bool) {
	if !analysis.IsDestructive {
		return
	}
	msg := analysis.DestructiveReason
	if !unsafeAllowed {
		msg = fmt.Sprintf("%s (requires --unsafe flag)", msg)
	}
	result.Warnings = append(result.Warnings, Warning{
		Level:   WarnDanger,
		Message: msg,
		SQL:     truncateSQL(stmt),
	})
}

func (a *StatementAnalyzer) addTransactionSafety(result *PreflightResult, analysis *StatementAnalysis, stmt string) {
	if analysis.IsTransactionSafe {
		return
	}
	result.IsTransactional = false
	reason := analysis.TxUnsafeReason
	if reason == "" {
		reason = "statement cannot run inside a transaction block"
	}
	result.NonTxReasons = append(result.NonTxReasons, fmt.Sprintf("%s: %s", reason, truncateSQL(stmt)))
}

func (a *StatementAnalyzer) analyzeNode(node *pg_query.Node) *StatementAnalysis {
	analysis := &StatementAnalysis{
		IsTransactionSafe: true,
	}

	if a.analyzeDropNode(node, analysis) {
		return analysis
	}
	if a.analyzeCreateNode(node, analysis) {
		return analysis
	}
	if a.analyzeAlterNode(node, analysis) {
		return analysis
	}
	if a.analyzeTruncateNode(node, analysis) {
		return analysis
	}
	if a.analyzeDMLNode(node, analysis) {
		return analysis
	}
	if a.analyzeUtilityNode(node, analysis) {
		return analysis
	}

	analysis.StatementType = "OTHER"
	return analysis
}

func (a *StatementAnalyzer) analyzeDropNode(node *pg_query.Node, analysis *StatementAnalysis) bool {
	if stmt := node.GetDropdbStmt(); stmt != nil {
		analysis.StatementType = "DROP DATABASE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DROP DATABASE will permanently delete the entire database"
		analysis.IsTransactionSafe = false
		analysis.TxUnsafeReason = "DROP DATABASE cannot run inside a transaction block"
		return true
	}

	stmt := node.GetDropStmt()
	if stmt == nil {
		return false
	}
	switch stmt.RemoveType {
	case pg_query.ObjectType_OBJECT_TABLE:
		analysis.StatementType = "DROP TABLE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DROP TABLE will permanently delete the table and all its data"
	case pg_query.ObjectType_OBJECT_INDEX:
		analysis.StatementType = "DROP INDEX"
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "DROP INDEX takes an ACCESS EXCLUSIVE lock on the table")
		if stmt.Concurrent {
			analysis.IsTransactionSafe = false
			analysis.TxUnsafeReason = "DROP INDEX CONCURRENTLY cannot run inside a transaction block"
		}
	default:
		analysis.StatementType = "DROP"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DROP will permanently delete the object"
	}
	return true
}

func (a *StatementAnalyzer) analyzeCreateNode(node *pg_query.Node, analysis *StatementAnalysis) bool {
	switch {
	case node.GetCreateStmt() != nil:
		analysis.StatementType = "CREATE TABLE"
		return true
	case node.GetCreateTableAsStmt() != nil:
		analysis.StatementType = "CREATE TABLE AS"
		return true
	case node.GetIndexStmt() != nil:
		analysis.StatementType = "CREATE INDEX"
		if node.GetIndexStmt().Concurrent {
			analysis.IsTransactionSafe = false
			analysis.TxUnsafeReason = "CREATE INDEX CONCURRENTLY cannot run inside a transaction block"
			return true
		}
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, "CREATE INDEX blocks writes for the duration of index creation")
		return true
	case node.GetCreatedbStmt() != nil:
		analysis.StatementType = "CREATE DATABASE"
		analysis.IsTransactionSafe = false
		analysis.TxUnsafeReason = "CREATE DATABASE cannot run inside a transaction block"
		return true
	case node.GetViewStmt() != nil:
		analysis.StatementType = "CREATE VIEW"
		return true
	default:
		return false
	}
}

func (a *StatementAnalyzer) analyzeAlterNode(node *pg_query.Node, analysis *StatementAnalysis) bool {
	stmt := node.GetAlterTableStmt()
	if stmt == nil {
		return false
	}
	analysis.StatementType = "ALTER TABLE"
	for _, cmd := range stmt.Cmds {
		a.analyzeAlterTableCmd(cmd.GetAlterTableCmd(), analysis)
	}
	return true
}

func (a *StatementAnalyzer) analyzeAlterTableCmd(cmd *pg_query.AlterTableCmd, analysis *StatementAnalysis) {
	if cmd == nil {
		return
	}
	effect, ok := alterTableCmdEffects[cmd.Subtype]
	if !ok {
		return
	}

	if effect.blocking {
		analysis.IsBlocking = true
	}
	if effect.destructive {
		analysis.IsDestructive = true
		analysis.DestructiveReason = effect.destructiveReason
	}
	if effect.blockingReason != "" {
		analysis.BlockingReasons = append(analysis.BlockingReasons, effect.blockingReason)
	}
}

func (a *StatementAnalyzer) analyzeTruncateNode(node *pg_query.Node, analysis *StatementAnalysis) bool {
	if node.GetTruncateStmt() == nil {
		return false
	}
	analysis.StatementType = "TRUNCATE TABLE"
	analysis.IsDestructive = true
	analysis.DestructiveReason = "TRUNCATE TABLE will delete all rows from the table"
	analysis.IsBlocking = true
	analysis.BlockingReasons = append(analysis.BlockingReasons, "TRUNCATE TABLE takes an ACCESS EXCLUSIVE lock")
	return true
}

func (a *StatementAnalyzer) analyzeDMLNode(node *pg_query.Node, analysis *StatementAnalysis) bool {
	switch {
	case node.GetDeleteStmt() != nil:
		analysis.StatementType = "DELETE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DELETE will remove rows from the table"
		return true
	case node.GetInsertStmt() != nil:
		analysis.StatementType = "INSERT"
		if node.GetInsertStmt().OnConflictClause != nil {
			analysis.StatementType = "UPSERT"
		}
		return true
	case node.GetUpdateStmt() != nil:
		analysis.StatementType = "UPDATE"
		return true
	case node.GetSelectStmt() != nil:
		analysis.StatementType = "SELECT"
		return true
	default:
		return false
	}
}

func (a *StatementAnalyzer) analyzeUtilityNode(node *pg_query.Node, analysis *StatementAnalysis) bool {
	switch {
	case node.GetTransactionStmt() != nil:
		analysis.StatementType = "TRANSACTION"
		return true
	case node.GetVariableSetStmt() != nil:
		analysis.StatementType = "SET"
		return true
	case node.GetVacuumStmt() != nil:
		analysis.StatementType = "VACUUM"
		analysis.IsTransactionSafe = false
		analysis.TxUnsafeReason = "VACUUM cannot run inside a transaction block"
		return true
	default:
		return false
	}
}

// isTransactionControl reports whether sql is BEGIN, COMMIT, ROLLBACK or a
// similar statement. Scripts are applied inside the applier's own
// transaction, so these are dropped.
func isTransactionControl(sql string) bool {
	result, err := pg_query.Parse(sql)
	if err != nil || len(result.Stmts) == 0 {
		return false
	}
	return result.Stmts[0].Stmt.GetTransactionStmt() != nil
}

func truncateSQL(stmt string) string {
	stmt = strings.Join(strings.Fields(stmt), " ")
	if len(stmt) > 80 {
		return stmt[:77] + "..."
	}
	return stmt
}
