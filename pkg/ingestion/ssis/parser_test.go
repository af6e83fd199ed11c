// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ssis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metazcode/mzc/pkg/model"
)

const connMgrXML = `<?xml version="1.0"?>
<DTS:ConnectionManager xmlns:DTS="www.microsoft.com/SqlServer/Dts"
  DTS:ObjectName="SalesDB.conmgr" DTS:DTSID="{AAAAAAAA-0000-0000-0000-000000000001}"
  DTS:CreationName="OLEDB">
  <DTS:ObjectData>
    <DTS:ConnectionManager DTS:ConnectionString="Data Source=sqlhost;Initial Catalog=Sales;Provider=SQLOLEDB.1;Integrated Security=SSPI;" />
  </DTS:ObjectData>
</DTS:ConnectionManager>`

const projectParamsXML = `<?xml version="1.0"?>
<DTS:Property xmlns:DTS="www.microsoft.com/SqlServer/Dts" DTS:ObjectName="BatchDate" DTS:Value="2026-07-29" />`

const dtsxXML = `<?xml version="1.0"?>
<DTS:Executable xmlns:DTS="www.microsoft.com/SqlServer/Dts" xmlns:SQLTask="www.microsoft.com/sqlserver/dts/tasks/sqltask"
  DTS:ObjectName="LoadSales" DTS:ExecutableType="Package">
  <DTS:ConnectionManagers>
    <DTS:ConnectionManager DTS:ObjectName="SalesDB.conmgr" DTS:DTSID="{AAAAAAAA-0000-0000-0000-000000000001}" DTS:CreationName="OLEDB" />
  </DTS:ConnectionManagers>
  <DTS:Variables>
    <DTS:Variable DTS:ObjectName="RowCount" DTS:DTSID="{BBBBBBBB-0000-0000-0000-000000000002}">
      <DTS:VariableValue DTS:DataType="3">0</DTS:VariableValue>
    </DTS:Variable>
  </DTS:Variables>
  <DTS:Executables>
    <DTS:Executable DTS:ObjectName="Extract Orders" DTS:ExecutableType="Microsoft.ExecuteSQLTask">
      <DTS:ObjectData>
        <SQLTask:SqlTaskData SQLTask:Connection="{AAAAAAAA-0000-0000-0000-000000000001}"
          SQLTask:SqlStatementSource="SELECT OrderID FROM sales.Orders" />
      </DTS:ObjectData>
    </DTS:Executable>
    <DTS:Executable DTS:ObjectName="Archive Orders" DTS:ExecutableType="Microsoft.ExecuteSQLTask">
      <DTS:ObjectData>
        <SQLTask:SqlTaskData SQLTask:Connection="{AAAAAAAA-0000-0000-0000-000000000001}"
          SQLTask:SqlStatementSource="INSERT INTO sales.OrdersArchive SELECT * FROM sales.Orders" />
      </DTS:ObjectData>
    </DTS:Executable>
  </DTS:Executables>
  <DTS:PrecedenceConstraints>
    <DTS:PrecedenceConstraint DTS:From="Package\Extract Orders" DTS:To="Package\Archive Orders" />
  </DTS:PrecedenceConstraints>
</DTS:Executable>`

func writeProjectFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SalesDB.conmgr"), []byte(connMgrXML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Project.params"), []byte(projectParamsXML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LoadSales.dtsx"), []byte(dtsxXML), 0o644))
	return dir
}

func TestParseProjectBuildsConnectionAndParameterNodes(t *testing.T) {
	dir := writeProjectFixture(t)

	nodes, _, err := Parse(dir, nil)
	require.NoError(t, err)

	var conn, param *model.Node
	for _, n := range nodes {
		switch n.ID {
		case connectionID("SalesDB.conmgr"):
			conn = n
		case parameterID("BatchDate"):
			param = n
		}
	}

	require.NotNil(t, conn)
	assert.Equal(t, model.KindConnection, conn.Kind)
	assert.Equal(t, "sqlhost", conn.Properties["server"])
	assert.Equal(t, "Sales", conn.Properties["database"])

	require.NotNil(t, param)
	assert.Equal(t, model.KindParameter, param.Kind)
	assert.Equal(t, "2026-07-29", param.Properties["value"])
}

func TestParseProjectBuildsPipelineAndOperationNodes(t *testing.T) {
	dir := writeProjectFixture(t)

	nodes, edges, err := Parse(dir, nil)
	require.NoError(t, err)

	pID := pipelineID("LoadSales")
	var pipeline *model.Node
	var extract, archive *model.Node
	for _, n := range nodes {
		switch n.ID {
		case pID:
			pipeline = n
		case operationID(pID, "Extract Orders"):
			extract = n
		case operationID(pID, "Archive Orders"):
			archive = n
		}
	}
	require.NotNil(t, pipeline)
	require.NotNil(t, extract)
	require.NotNil(t, archive)
	assert.Equal(t, "EXECUTE", extract.Properties["operation_subtype"])

	var sawContains, sawPrecedes, sawUsesConnection bool
	for _, e := range edges {
		if e.SourceID == pID && e.Relation == model.RelationContains {
			sawContains = true
		}
		if e.Relation == model.RelationPrecedes && e.SourceID == extract.ID && e.TargetID == archive.ID {
			sawPrecedes = true
		}
		if e.Relation == model.RelationUsesConnection && e.SourceID == extract.ID {
			sawUsesConnection = true
		}
	}
	assert.True(t, sawContains)
	assert.True(t, sawPrecedes)
	assert.True(t, sawUsesConnection)
}

func TestParseProjectClassifiesExecuteSQLReadsAndWrites(t *testing.T) {
	dir := writeProjectFixture(t)

	nodes, edges, err := Parse(dir, nil)
	require.NoError(t, err)

	pID := pipelineID("LoadSales")
	extractID := operationID(pID, "Extract Orders")
	archiveID := operationID(pID, "Archive Orders")

	var sawReadsFrom, sawWritesTo bool
	for _, e := range edges {
		if e.SourceID == extractID && e.Relation == model.RelationReadsFrom {
			sawReadsFrom = true
		}
		if e.SourceID == archiveID && e.Relation == model.RelationWritesTo {
			sawWritesTo = true
		}
	}
	assert.True(t, sawReadsFrom)
	assert.True(t, sawWritesTo)

	var tableNode *model.Node
	for _, n := range nodes {
		if n.ID == tableID("sales.Orders") {
			tableNode = n
		}
	}
	require.NotNil(t, tableNode)
	assert.Equal(t, model.KindTable, tableNode.Kind)
}

func TestDetermineSQLType(t *testing.T) {
	assert.Equal(t, "SELECT", determineSQLType("  select * from t"))
	assert.Equal(t, "INSERT", determineSQLType("INSERT INTO t VALUES (1)"))
	assert.Equal(t, "EXECUTE", determineSQLType("EXEC dbo.sp_refresh"))
	assert.Equal(t, "UNKNOWN", determineSQLType("MERGE t USING s"))
}

func TestExtractSQLParameters(t *testing.T) {
	params := extractSQLParameters("SELECT * FROM t WHERE a = ? AND b = ?")
	require.Len(t, params, 2)
	assert.Equal(t, 0, params[0]["position"])
	assert.Equal(t, 1, params[1]["position"])
}

func TestExtractTableReferences(t *testing.T) {
	refs := extractTableReferences("SELECT * FROM sales.Orders o JOIN sales.Customers c ON o.CustomerID = c.CustomerID")
	require.Len(t, refs, 2)
	assert.Equal(t, "sales.Orders", refs[0].FullName())
	assert.Equal(t, "sales.Customers", refs[1].FullName())
}

func TestParseConnectionStringExtractsComponents(t *testing.T) {
	components := parseConnectionString("Data Source=myhost;Initial Catalog=MyDB;Provider=SQLNCLI11.1;Integrated Security=SSPI;")
	assert.Equal(t, "myhost", components["server"])
	assert.Equal(t, "MyDB", components["database"])
	assert.Equal(t, "SQLNCLI11.1", components["provider"])
}

func TestAnalyzeConnectionExpressionDetectsParamsAndVariables(t *testing.T) {
	analysis := analyzeConnectionExpression("Data Source=$Project::ServerName;Initial Catalog=@[User::DbName];")
	assert.True(t, analysis.IsParameterized)
	assert.Contains(t, analysis.UsesParameters, "ServerName")
	assert.Contains(t, analysis.UsesVariables, "DbName")
}

func TestPlatformFromConnectionDefaultsToSQLServer(t *testing.T) {
	assert.Equal(t, "sql_server", platformFromConnection(connectionContext{CreationName: "OLEDB", Components: map[string]string{"provider": "SQLOLEDB.1"}}))
	assert.Equal(t, "oracle", platformFromConnection(connectionContext{Components: map[string]string{"provider": "OraOLEDB.Oracle"}}))
	assert.Equal(t, "mysql", platformFromConnection(connectionContext{Components: map[string]string{"provider": "MySQLProv"}}))
	assert.Equal(t, "sql_server", platformFromConnection(connectionContext{}))
}

func TestExtractTaskNameFromRef(t *testing.T) {
	assert.Equal(t, "Extract Orders", extractTaskNameFromRef(`Package\Extract Orders`))
	assert.Equal(t, "Extract Orders", extractTaskNameFromRef("Extract Orders"))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"User::A", "User::B"}, splitCSV("User::A,User::B"))
	assert.Nil(t, splitCSV(""))
}

func TestAnalyzeScriptComplexity(t *testing.T) {
	assert.Equal(t, complexityLow, analyzeScriptComplexity("Sub Main()\nEnd Sub"))
	high := `
		Sub Main()
			If a Then
				For i = 1 To 10
					If b Then
						Try
							Class X
							End Class
						Catch ex As Exception
						End Try
					End If
				Next
			End If
			If a Then
			End If
			If a Then
			End If
			If a Then
			End If
			If a Then
			End If
			If a Then
			End If
		End Sub`
	assert.Equal(t, complexityHigh, analyzeScriptComplexity(high))
}

func TestDetectFrameworkDependencies(t *testing.T) {
	deps := detectFrameworkDependencies("Dim conn As New SqlConnection(Dts.Variables(\"User::ConnStr\").Value)")
	assert.Contains(t, deps, "ado_net")
	assert.Contains(t, deps, "ssis_variables")
}

func TestAppendJoinEdgesEmitsReferencesEdgePerJoin(t *testing.T) {
	var nodes []*model.Node
	var edges []*model.Edge
	seen := make(map[string]struct{})

	sql := "SELECT p.Name, c.CategoryName FROM dbo.Products p JOIN dbo.Categories c ON p.CategoryID = c.CategoryID"
	appendJoinEdges(sql, seen, &nodes, &edges)

	require.Len(t, edges, 1)
	edge := edges[0]
	assert.Equal(t, model.RelationReferences, edge.Relation)
	assert.Equal(t, tableID("dbo.Products"), edge.SourceID)
	assert.Equal(t, tableID("dbo.Categories"), edge.TargetID)
	assert.Equal(t, "INNER JOIN", edge.Properties["join_type"])
	assert.Equal(t, "p.CategoryID = c.CategoryID", edge.Properties["condition"])

	var sawProducts, sawCategories bool
	for _, n := range nodes {
		switch n.ID {
		case tableID("dbo.Products"):
			sawProducts = true
		case tableID("dbo.Categories"):
			sawCategories = true
		}
	}
	assert.True(t, sawProducts)
	assert.True(t, sawCategories)
}

func TestParseProjectExecuteSQLJoinProducesReferencesEdge(t *testing.T) {
	dir := t.TempDir()
	joinDTSX := `<?xml version="1.0"?>
<DTS:Executable xmlns:DTS="www.microsoft.com/SqlServer/Dts" xmlns:SQLTask="www.microsoft.com/sqlserver/dts/tasks/sqltask"
  DTS:ObjectName="JoinPackage" DTS:ExecutableType="Package">
  <DTS:Executables>
    <DTS:Executable DTS:ObjectName="Join Products" DTS:ExecutableType="Microsoft.ExecuteSQLTask">
      <DTS:ObjectData>
        <SQLTask:SqlTaskData SQLTask:SqlStatementSource="SELECT p.Name FROM Products p JOIN Categories c ON p.CategoryID = c.CategoryID" />
      </DTS:ObjectData>
    </DTS:Executable>
  </DTS:Executables>
</DTS:Executable>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "JoinPackage.dtsx"), []byte(joinDTSX), 0o644))

	_, edges, err := Parse(dir, nil)
	require.NoError(t, err)

	var sawReferences bool
	for _, e := range edges {
		if e.Relation == model.RelationReferences && e.SourceID == tableID("Products") && e.TargetID == tableID("Categories") {
			sawReferences = true
			assert.Equal(t, "join_relationship", e.Properties["relationship_type"])
		}
	}
	assert.True(t, sawReferences)
}

func TestCategorizeOperationSubtypeUnknownTypeDefaultsToExecute(t *testing.T) {
	assert.Equal(t, subtypeExecute, categorizeOperationSubtype("Microsoft.SomeFutureTask"))
	assert.Equal(t, subtypeExecute, categorizeOperationSubtype("Microsoft.FileSystemTask"))
	assert.Equal(t, subtypeControlFlow, categorizeOperationSubtype("STOCK:FOREACHLOOP"))
	assert.Equal(t, subtypeDataFlow, categorizeOperationSubtype("Microsoft.Pipeline"))
	assert.Equal(t, subtypeScript, categorizeOperationSubtype("Microsoft.ScriptTask"))
}

func TestIDHelpers(t *testing.T) {
	assert.Equal(t, "pipeline:LoadSales", pipelineID("LoadSales"))
	assert.Equal(t, "pipeline:LoadSales:operation:Extract Orders", operationID(pipelineID("LoadSales"), "Extract Orders"))
	assert.Equal(t, "connection:SalesDB.conmgr", connectionID("SalesDB.conmgr"))
	assert.Equal(t, "parameter:BatchDate", parameterID("BatchDate"))
	assert.Equal(t, "variable:User.RowCount", variableID("User", "RowCount"))
	assert.Equal(t, "table:sales.Orders", tableID("sales.Orders"))
	assert.Equal(t, "table:Orders", tableID("[Orders]"))
}
