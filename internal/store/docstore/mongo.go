package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/logger"
)

const (
	lecturesCollection = "lectures"
	routersCollection  = "avsrouters"
)

type mongoStore struct {
	log      *logger.Logger
	client   *mongo.Client
	lectures *mongo.Collection
	routers  *mongo.Collection
}

// NewMongo connects to the document store and verifies the connection.
// One store handle is created at startup and injected into every service
// that needs it; nothing reaches for a global client.
func NewMongo(log *logger.Logger, uri, dbName string) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if uri == "" {
		return nil, fmt.Errorf("missing mongo uri")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(dbName)
	return &mongoStore{
		log:      log.With("service", "DocStore"),
		client:   client,
		lectures: db.Collection(lecturesCollection),
		routers:  db.Collection(routersCollection),
	}, nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *mongoStore) Lecture(ctx context.Context, lectureUUID string) (*domain.LectureDocument, error) {
	var doc domain.LectureDocument
	err := s.lectures.FindOne(ctx, bson.D{{Key: "uuid", Value: lectureUUID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lecture: %w", err)
	}
	return &doc, nil
}

func (s *mongoStore) List(ctx context.Context, sel ListSelector) ([]domain.LectureSummary, error) {
	or := bson.A{}
	if sel.LMS != nil && sel.LMS.CourseID != "" && sel.LMS.PlatformID != "" {
		or = append(or, bson.D{
			{Key: "lms.course_id", Value: sel.LMS.CourseID},
			{Key: "lms.platform_id", Value: sel.LMS.PlatformID},
		})
	}
	if sel.OwnerUUID != "" {
		or = append(or, bson.D{{Key: "owners", Value: sel.OwnerUUID}})
	}
	if len(or) == 0 {
		return nil, fmt.Errorf("list selector is empty")
	}
	opts := options.Find().
		SetProjection(bson.D{
			{Key: "title", Value: 1},
			{Key: "coursetitle", Value: 1},
			{Key: "uuid", Value: 1},
			{Key: "date", Value: 1},
			{Key: "lms.course_id", Value: 1},
			{Key: "_id", Value: 0},
		}).
		SetSort(bson.D{
			{Key: "lms.course_id", Value: -1},
			{Key: "coursetitle", Value: 1},
			{Key: "date", Value: 1},
			{Key: "title", Value: 1},
		})
	cursor, err := s.lectures.Find(ctx, bson.D{{Key: "$or", Value: or}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list lectures: %w", err)
	}
	defer cursor.Close(ctx)
	var out []domain.LectureSummary
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode lecture list: %w", err)
	}
	return out, nil
}

// touch stamps lastaccess server-side as part of the same update.
func touch(update bson.D) bson.D {
	return append(update, bson.E{Key: "$currentDate", Value: bson.D{{Key: "lastaccess", Value: true}}})
}

func (s *mongoStore) updateLecture(ctx context.Context, filter, update bson.D, opts ...options.Lister[options.UpdateOneOptions]) error {
	_, err := s.lectures.UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return fmt.Errorf("update lecture: %w", err)
	}
	return nil
}

func (s *mongoStore) SetDate(ctx context.Context, lectureUUID string, date time.Time) error {
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$set", Value: bson.D{{Key: "date", Value: date}}}}),
	)
}

func (s *mongoStore) SetOwnersDisplayNames(ctx context.Context, lectureUUID string, names []string) error {
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$set", Value: bson.D{{Key: "ownersdisplaynames", Value: names}}}}),
	)
}

func courseFilter(lms domain.LMSRef) bson.D {
	return bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "lms.iss", Value: lms.Issuer}},
		bson.D{{Key: "lms.course_id", Value: lms.CourseID}},
	}}}
}

func (s *mongoStore) SetCourseAppVersion(ctx context.Context, lms domain.LMSRef, appVersion string) error {
	_, err := s.lectures.UpdateMany(ctx, courseFilter(lms),
		touch(bson.D{{Key: "$set", Value: bson.D{{Key: "appversion", Value: appVersion}}}}),
	)
	if err != nil {
		return fmt.Errorf("set course appversion: %w", err)
	}
	return nil
}

func (s *mongoStore) SetCourseFeatures(ctx context.Context, lms domain.LMSRef, features []string) error {
	_, err := s.lectures.UpdateMany(ctx, courseFilter(lms),
		touch(bson.D{{Key: "$set", Value: bson.D{{Key: "features", Value: features}}}}),
	)
	if err != nil {
		return fmt.Errorf("set course features: %w", err)
	}
	return nil
}

func (s *mongoStore) EnsurePoll(ctx context.Context, lectureUUID, parentID, pollID string) error {
	if parentID == "" {
		// Guarded set-add: the $ne filter makes the insert a no-op when
		// the id already exists, so concurrent retries cannot duplicate.
		return s.updateLecture(ctx,
			bson.D{
				{Key: "uuid", Value: lectureUUID},
				{Key: "polls.id", Value: bson.D{{Key: "$ne", Value: pollID}}},
			},
			bson.D{{Key: "$addToSet", Value: bson.D{{Key: "polls", Value: bson.D{{Key: "id", Value: pollID}}}}}},
		)
	}
	return s.updateLecture(ctx,
		bson.D{
			{Key: "uuid", Value: lectureUUID},
			{Key: "polls.children.id", Value: bson.D{{Key: "$ne", Value: pollID}}},
		},
		bson.D{{Key: "$addToSet", Value: bson.D{
			{Key: "polls.$[par].children", Value: bson.D{{Key: "id", Value: pollID}}},
		}}},
		options.UpdateOne().SetArrayFilters([]interface{}{
			bson.D{{Key: "par.id", Value: parentID}},
		}),
	)
}

func (s *mongoStore) PatchPoll(ctx context.Context, lectureUUID, parentID, pollID string, fields PollFields) error {
	set := bson.D{}
	prefix := "polls.$[poll]."
	filters := []interface{}{bson.D{{Key: "poll.id", Value: pollID}}}
	if parentID != "" {
		prefix = "polls.$[par].children.$[poll]."
		filters = []interface{}{
			bson.D{{Key: "par.id", Value: parentID}},
			bson.D{{Key: "poll.id", Value: pollID}},
		}
	}
	if fields.Name != nil {
		set = append(set, bson.E{Key: prefix + "name", Value: *fields.Name})
	}
	if fields.Multi != nil {
		set = append(set, bson.E{Key: prefix + "multi", Value: *fields.Multi})
	}
	if fields.Note != nil {
		set = append(set, bson.E{Key: prefix + "note", Value: *fields.Note})
	}
	if len(set) == 0 {
		return nil
	}
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$set", Value: set}}),
		options.UpdateOne().SetArrayFilters(filters),
	)
}

func (s *mongoStore) PullPoll(ctx context.Context, lectureUUID, parentID, pollID string) error {
	var pull bson.D
	if parentID == "" {
		pull = bson.D{{Key: "polls", Value: bson.D{{Key: "id", Value: pollID}}}}
	} else {
		// Poll ids are forest-unique, pulling from every children list is safe.
		pull = bson.D{{Key: "polls.$[].children", Value: bson.D{{Key: "id", Value: pollID}}}}
	}
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$pull", Value: pull}}),
	)
}

func (s *mongoStore) PullPollsByID(ctx context.Context, lectureUUID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		bson.D{{Key: "$pull", Value: bson.D{
			{Key: "polls", Value: bson.D{{Key: "id", Value: bson.D{{Key: "$in", Value: ids}}}}},
		}}},
	)
}

func (s *mongoStore) PushPolls(ctx context.Context, lectureUUID string, polls []domain.Poll) error {
	if len(polls) == 0 {
		return nil
	}
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$push", Value: bson.D{
			{Key: "polls", Value: bson.D{{Key: "$each", Value: polls}}},
		}}}),
	)
}

func (s *mongoStore) EnsureNotebook(ctx context.Context, lectureUUID, notebookID string) error {
	return s.updateLecture(ctx,
		bson.D{
			{Key: "uuid", Value: lectureUUID},
			{Key: "ipynbs.id", Value: bson.D{{Key: "$ne", Value: notebookID}}},
		},
		touch(bson.D{{Key: "$addToSet", Value: bson.D{
			{Key: "ipynbs", Value: bson.D{{Key: "id", Value: notebookID}}},
		}}}),
	)
}

func (s *mongoStore) ReplaceNotebook(ctx context.Context, lectureUUID string, nb domain.Notebook) error {
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$set", Value: bson.D{{Key: "ipynbs.$[nb]", Value: nb}}}}),
		options.UpdateOne().SetArrayFilters([]interface{}{
			bson.D{{Key: "nb.id", Value: nb.ID}},
		}),
	)
}

func (s *mongoStore) PatchNotebookMeta(ctx context.Context, lectureUUID, notebookID string, fields NotebookFields) error {
	set := bson.D{}
	if fields.Name != nil {
		set = append(set, bson.E{Key: "ipynbs.$[nb].name", Value: *fields.Name})
	}
	if fields.PresentDownload != nil {
		set = append(set, bson.E{Key: "ipynbs.$[nb].presentDownload", Value: *fields.PresentDownload})
	}
	if fields.Note != nil {
		set = append(set, bson.E{Key: "ipynbs.$[nb].note", Value: *fields.Note})
	}
	if len(set) == 0 {
		return nil
	}
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$set", Value: set}}),
		options.UpdateOne().SetArrayFilters([]interface{}{
			bson.D{{Key: "nb.id", Value: notebookID}},
		}),
	)
}

func (s *mongoStore) SetAppletVisibility(ctx context.Context, lectureUUID, notebookID, appID string, present bool) error {
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$set", Value: bson.D{
			{Key: "ipynbs.$[nb].applets.$[app].presentToStudents", Value: present},
		}}}),
		options.UpdateOne().SetArrayFilters([]interface{}{
			bson.D{{Key: "nb.id", Value: notebookID}},
			bson.D{{Key: "app.appid", Value: appID}},
		}),
	)
}

func (s *mongoStore) PullNotebook(ctx context.Context, lectureUUID, notebookID string) error {
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$pull", Value: bson.D{
			{Key: "ipynbs", Value: bson.D{{Key: "id", Value: notebookID}}},
		}}}),
	)
}

func (s *mongoStore) PullNotebooksByID(ctx context.Context, lectureUUID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		bson.D{{Key: "$pull", Value: bson.D{
			{Key: "ipynbs", Value: bson.D{{Key: "id", Value: bson.D{{Key: "$in", Value: ids}}}}},
		}}},
	)
}

func (s *mongoStore) PushNotebooks(ctx context.Context, lectureUUID string, nbs []domain.Notebook) error {
	if len(nbs) == 0 {
		return nil
	}
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$push", Value: bson.D{
			{Key: "ipynbs", Value: bson.D{{Key: "$each", Value: nbs}}},
		}}}),
	)
}

func (s *mongoStore) AddPictures(ctx context.Context, lectureUUID string, pics []domain.Asset) error {
	if len(pics) == 0 {
		return nil
	}
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{{Key: "$addToSet", Value: bson.D{
			{Key: "pictures", Value: bson.D{{Key: "$each", Value: pics}}},
		}}}),
	)
}

func (s *mongoStore) SetBackground(ctx context.Context, lectureUUID, name string, sha domain.ContentHash) error {
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{
			{Key: "$unset", Value: bson.D{{Key: "backgroundpdf.none", Value: ""}}},
			{Key: "$set", Value: bson.D{
				{Key: "backgroundpdf.name", Value: name},
				{Key: "backgroundpdf.sha", Value: []byte(sha)},
			}},
		}),
	)
}

func (s *mongoStore) ResetBackground(ctx context.Context, lectureUUID string) error {
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		touch(bson.D{
			{Key: "$set", Value: bson.D{{Key: "backgroundpdf.none", Value: true}}},
			{Key: "$unset", Value: bson.D{
				{Key: "backgroundpdf.name", Value: ""},
				{Key: "backgroundpdf.sha", Value: ""},
			}},
		}),
	)
}

func (s *mongoStore) SetLectureSnapshot(ctx context.Context, lectureUUID string, snap LectureSnapshot) error {
	set := bson.D{}
	if snap.BackgroundInUse {
		set = append(set, bson.E{Key: "backgroundpdfuse", Value: true})
	}
	if snap.BackgroundDoc != nil {
		set = append(set, bson.E{Key: "backgroundpdf", Value: snap.BackgroundDoc})
	}
	if snap.BoardSaveTime != 0 {
		set = append(set, bson.E{Key: "boardsavetime", Value: snap.BoardSaveTime})
	}
	if snap.UsedPictures != nil {
		set = append(set, bson.E{Key: "usedpictures", Value: snap.UsedPictures})
	}
	if snap.UsedNotebooks != nil {
		set = append(set, bson.E{Key: "usedipynbs", Value: snap.UsedNotebooks})
	}
	if len(set) == 0 {
		return nil
	}
	return s.updateLecture(ctx,
		bson.D{{Key: "uuid", Value: lectureUUID}},
		bson.D{{Key: "$set", Value: set}},
	)
}

func (s *mongoStore) Routers(ctx context.Context) ([]domain.RouterStatus, error) {
	opts := options.Find().SetProjection(bson.D{
		{Key: "_id", Value: 0},
		{Key: "url", Value: 1},
		{Key: "region", Value: 1},
		{Key: "numClients", Value: 1},
		{Key: "localClients", Value: 1},
		{Key: "remoteClients", Value: 1},
		{Key: "primaryRealms", Value: 1},
	})
	cursor, err := s.routers.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find routers: %w", err)
	}
	defer cursor.Close(ctx)
	var out []domain.RouterStatus
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode routers: %w", err)
	}
	return out, nil
}
