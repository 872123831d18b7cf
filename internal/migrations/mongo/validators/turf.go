package validators

import "go.mongodb.org/mongo-driver/bson"

var TurfValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"location",
			"price_per_hour",
			"operating_hours",
			"is_active",
			"created_by",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"location": bson.M{
				"bsonType": "object",
				"required": []string{"address", "city"},
				"properties": bson.M{
					"address": bson.M{"bsonType": "string"},
					"city":    bson.M{"bsonType": "string"},
					"state":   bson.M{"bsonType": "string"},
					"pincode": bson.M{"bsonType": "string"},
				},
			},

			"price_per_hour": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"operating_hours": bson.M{
				"bsonType": "object",
				"required": []string{"open", "close"},
				"properties": bson.M{
					"open":  bson.M{"bsonType": "string", "pattern": "^([01]?[0-9]|2[0-3]):[0-5][0-9]$"},
					"close": bson.M{"bsonType": "string", "pattern": "^([01]?[0-9]|2[0-3]):[0-5][0-9]$"},
				},
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"created_by": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
