package db

import "os"

func FunctionCatalogTableName() string {
	return getenv("FUNCTION_CATALOG_TABLE", "function_catalog")
}

func SubscriptionsTableName() string {
	return getenv("SUBSCRIPTIONS_TABLE", "subscriptions")
}

func ProductsTableName() string {
	return getenv("PRODUCTS_TABLE", "financial_products")
}

func GoalsTableName() string {
	return getenv("GOALS_TABLE", "financial_goals")
}

func Endpoint() string {
	return os.Getenv("DYNAMODB_ENDPOINT")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
