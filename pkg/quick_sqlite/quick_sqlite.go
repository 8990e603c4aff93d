// Package quick_sqlite is a small wrapper around an embedded SQLite database
// for people new to SQL.
//
// Features:
//   - Table creation from column names and simple type names
//   - Insert, update, delete and select without writing SQL
//   - Lifecycle events (connect, reconnect, disconnect, error, commit,
//     rollback, transaction_success)
//   - Automatic reconnection with a configurable backoff
//   - One transparent retry when the database is locked
//
// Example usage:
//
//	db, err := quick_sqlite.Open("app.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	db.On(listeners.TransactionSuccess, func(path, op string) {
//		log.Printf("%s on %s succeeded", op, path)
//	})
//
//	err = db.CreateTable("users", []string{"id", "name"}, []string{"INT", "STR"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = db.Insert("users", 1, "Ann")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	row, err := db.SelectOne("users", []string{"name"}, quick_sqlite.Where("id", 1))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(row.Text("name"))
package quick_sqlite
